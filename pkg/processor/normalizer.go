package processor

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lchliebedich/wordlib_bot/pkg/metrics"
	"github.com/lchliebedich/wordlib_bot/pkg/types"
	"github.com/lchliebedich/wordlib_bot/pkg/wordlib"
)

// cqCodePattern 匹配消息文本中的CQ码，如 [CQ:image,file=xxx]
var cqCodePattern = regexp.MustCompile(`\[CQ:[^\]]*\]`)

// onebotMessageEvent OneBot v11消息事件中normalizer关心的字段
// message字段既可能是纯文本也可能是消息段数组，延迟到展平时再解
type onebotMessageEvent struct {
	Time        int64           `json:"time"`
	SelfID      int64           `json:"self_id"`
	PostType    string          `json:"post_type"`
	MessageType string          `json:"message_type"`
	MessageID   int64           `json:"message_id"`
	UserID      int64           `json:"user_id"`
	GroupID     int64           `json:"group_id"`
	Message     json.RawMessage `json:"message"`
	RawMessage  string          `json:"raw_message"`
	Sender      struct {
		Nickname string `json:"nickname"`
		Card     string `json:"card"`
	} `json:"sender"`
	GroupName string `json:"group_name"`
}

type messageSegment struct {
	Type string `json:"type"`
	Data struct {
		Text string `json:"text"`
	} `json:"data"`
}

// Normalizer 把OneBot原始事件规整为纯文本消息并构建变量上下文
// 时间戳在这里采样一次，之后整条消息的处理都使用同一时刻
type Normalizer struct {
	workers int
	metrics *metrics.ProcessorMetrics
}

func NewNormalizer(workers int) *Normalizer {
	if workers <= 0 {
		workers = 1
	}
	return &Normalizer{
		workers: workers,
		metrics: &metrics.ProcessorMetrics{},
	}
}

func (n *Normalizer) Stage() types.Stage {
	return types.StageNormalize
}

func (n *Normalizer) Name() string {
	return "normalizer"
}

func (n *Normalizer) CheckReady() error {
	return nil
}

func (n *Normalizer) Metrics() *metrics.ProcessorMetrics {
	return n.metrics
}

func (n *Normalizer) Process(ctx context.Context, in <-chan *types.Message, wg *sync.WaitGroup) (<-chan *types.Message, error) {
	out := make(chan *types.Message, n.workers)
	logrus.Debugf("Starting normalizer with %d workers", n.workers)

	var workerWg sync.WaitGroup
	workerWg.Add(n.workers)
	wg.Add(n.workers)
	for i := 0; i < n.workers; i++ {
		go func(workerID int) {
			defer wg.Done()
			defer workerWg.Done()
			logrus.Debugf("Normalizer worker %d started", workerID)
			for {
				select {
				case <-ctx.Done():
					logrus.Debugf("Normalizer worker %d stopping due to context cancellation", workerID)
					return
				case msg, ok := <-in:
					if !ok {
						logrus.Debugf("Normalizer worker %d: input channel closed", workerID)
						return
					}
					if msg == nil {
						logrus.Warnf("Normalizer worker %d received nil message", workerID)
						continue
					}

					n.normalize(msg)
					n.metrics.IncrementProcessed()

					select {
					case out <- msg:
					case <-ctx.Done():
						logrus.Warnf("Normalizer worker %d: context cancelled while sending message", workerID)
						return
					}
				}
			}
		}(i)
	}

	// 所有worker退出后关闭输出通道
	go func() {
		workerWg.Wait()
		close(out)
	}()

	return out, nil
}

// normalize 填充消息的协议字段、展平文本并构建变量上下文
func (n *Normalizer) normalize(msg *types.Message) {
	if msg.RawEvent != nil {
		var event onebotMessageEvent
		if err := json.Unmarshal(msg.RawEvent, &event); err != nil {
			logrus.Warnf("解析OneBot事件失败: %v", err)
			msg.LastError = err
		} else {
			msg.MessageType = event.MessageType
			msg.MessageID = event.MessageID
			msg.SelfID = event.SelfID
			msg.UserID = event.UserID
			msg.GroupID = event.GroupID
			msg.GroupName = event.GroupName
			msg.SenderName = senderName(&event)
			if msg.Timestamp == 0 && event.Time > 0 {
				msg.Timestamp = event.Time
			}
			if msg.Text == "" {
				msg.Text = flattenMessage(event.Message, event.RawMessage)
			}
		}
	}

	ts := time.Now()
	if msg.Timestamp > 0 {
		ts = time.Unix(msg.Timestamp, 0)
	} else {
		msg.Timestamp = ts.Unix()
	}

	msg.Context = &wordlib.Context{
		Timestamp:   ts,
		SelfID:      msg.SelfID,
		UserID:      msg.UserID,
		GroupID:     msg.GroupID,
		MessageID:   msg.MessageID,
		MessageType: msg.MessageType,
		SenderName:  msg.SenderName,
		GroupName:   msg.GroupName,
		Text:        msg.Text,
	}
}

// senderName 群名片优先于昵称，与聊天窗口显示一致
func senderName(event *onebotMessageEvent) string {
	if event.Sender.Card != "" {
		return event.Sender.Card
	}
	return event.Sender.Nickname
}

// flattenMessage 把message字段展平为纯文本
// 数组形式只保留text段，字符串形式剥掉CQ码
func flattenMessage(raw json.RawMessage, fallback string) string {
	if len(raw) > 0 {
		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			return strings.TrimSpace(cqCodePattern.ReplaceAllString(asString, ""))
		}

		var segments []messageSegment
		if err := json.Unmarshal(raw, &segments); err == nil {
			var b strings.Builder
			for _, seg := range segments {
				if seg.Type == "text" {
					b.WriteString(seg.Data.Text)
				}
			}
			return strings.TrimSpace(b.String())
		}
	}
	return strings.TrimSpace(cqCodePattern.ReplaceAllString(fallback, ""))
}
