package metrics

import (
	"sync/atomic"
	"time"
)

type ProcessorMetrics struct {
	ProcessedMessages uint64
	DroppedMessages   uint64
	ProcessingTime    uint64 // 纳秒
	Matched           uint64 // 词条命中计数
	NoMatch           uint64 // 无词条命中计数
	SilentReplies     uint64 // 命中静默词条计数
}

func (m *ProcessorMetrics) IncrementProcessed() {
	atomic.AddUint64(&m.ProcessedMessages, 1)
}

func (m *ProcessorMetrics) IncrementDropped() {
	atomic.AddUint64(&m.DroppedMessages, 1)
}

func (m *ProcessorMetrics) IncrementMatched() {
	atomic.AddUint64(&m.Matched, 1)
}

func (m *ProcessorMetrics) IncrementNoMatch() {
	atomic.AddUint64(&m.NoMatch, 1)
}

func (m *ProcessorMetrics) IncrementSilentReplies() {
	atomic.AddUint64(&m.SilentReplies, 1)
}

func (m *ProcessorMetrics) AddProcessingTime(duration time.Duration) {
	atomic.AddUint64(&m.ProcessingTime, uint64(duration.Nanoseconds()))
}

func (m *ProcessorMetrics) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"processed_messages": atomic.LoadUint64(&m.ProcessedMessages),
		"dropped_messages":   atomic.LoadUint64(&m.DroppedMessages),
		"processing_time":    atomic.LoadUint64(&m.ProcessingTime),
		"matched":            atomic.LoadUint64(&m.Matched),
		"no_match":           atomic.LoadUint64(&m.NoMatch),
		"silent_replies":     atomic.LoadUint64(&m.SilentReplies),
		"avg_process_time": float64(atomic.LoadUint64(&m.ProcessingTime)) /
			float64(atomic.LoadUint64(&m.ProcessedMessages)+1),
	}
}

type SourceMetrics struct {
	EventsReceived    uint64 // 收到的OneBot事件总数
	MessagesAccepted  uint64 // 转入流水线的消息事件数
	BytesProcessed    uint64
	ErrorCount        uint64
	HeartbeatsSkipped uint64
}

func (m *SourceMetrics) IncrementEventsReceived() {
	atomic.AddUint64(&m.EventsReceived, 1)
}

func (m *SourceMetrics) IncrementMessagesAccepted() {
	atomic.AddUint64(&m.MessagesAccepted, 1)
}

func (m *SourceMetrics) AddBytesProcessed(bytes uint64) {
	atomic.AddUint64(&m.BytesProcessed, bytes)
}

func (m *SourceMetrics) IncrementErrorCount() {
	atomic.AddUint64(&m.ErrorCount, 1)
}

func (m *SourceMetrics) IncrementHeartbeatsSkipped() {
	atomic.AddUint64(&m.HeartbeatsSkipped, 1)
}

func (m *SourceMetrics) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"events_received":    atomic.LoadUint64(&m.EventsReceived),
		"messages_accepted":  atomic.LoadUint64(&m.MessagesAccepted),
		"bytes_processed":    atomic.LoadUint64(&m.BytesProcessed),
		"error_count":        atomic.LoadUint64(&m.ErrorCount),
		"heartbeats_skipped": atomic.LoadUint64(&m.HeartbeatsSkipped),
	}
}

type SinkMetrics struct {
	RepliesSent uint64
	SendErrors  uint64
	BytesSent   uint64
}

func (m *SinkMetrics) IncrementRepliesSent() {
	atomic.AddUint64(&m.RepliesSent, 1)
}

func (m *SinkMetrics) IncrementSendErrors() {
	atomic.AddUint64(&m.SendErrors, 1)
}

func (m *SinkMetrics) AddBytesSent(bytes uint64) {
	atomic.AddUint64(&m.BytesSent, bytes)
}

func (m *SinkMetrics) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"replies_sent": atomic.LoadUint64(&m.RepliesSent),
		"send_errors":  atomic.LoadUint64(&m.SendErrors),
		"bytes_sent":   atomic.LoadUint64(&m.BytesSent),
	}
}
