package sink

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/lchliebedich/wordlib_bot/pkg/metrics"
	"github.com/lchliebedich/wordlib_bot/pkg/types"
)

// Sender 回复的发送端，由OneBot连接实现；回放测试时用内存实现替代
type Sender interface {
	SendPrivateMessage(userID int64, text string) error
	SendGroupMessage(groupID int64, text string) error
}

// ReplySink 消费处理完的消息，把非空回复发回消息来源
// 词库无匹配和静默词条都不发送，只记日志和计数
type ReplySink struct {
	sender Sender
	stats  *metrics.SinkMetrics
	ready  chan struct{}
}

func NewReplySink(sender Sender) *ReplySink {
	return &ReplySink{
		sender: sender,
		stats:  &metrics.SinkMetrics{},
		ready:  make(chan struct{}),
	}
}

func (s *ReplySink) Consume(ctx context.Context, in <-chan *types.Message) error {
	logrus.Info("Starting reply sink consumer")
	defer logrus.Info("Reply sink consumer stopped")

	close(s.ready)

	for {
		select {
		case <-ctx.Done():
			logrus.Debug("Reply sink received context cancellation")
			return nil
		case msg, ok := <-in:
			if !ok {
				logrus.Debug("Reply sink input channel closed")
				return nil
			}
			s.deliver(msg)
		}
	}
}

func (s *ReplySink) deliver(msg *types.Message) {
	if msg.Reply == nil || !msg.Reply.Matched {
		logrus.Debugf("词库无匹配，不回复: %q", msg.Text)
		return
	}
	if msg.Reply.Text == "" {
		// 静默词条：命中但不发送
		logrus.Debugf("静默词条命中，不回复: %q", msg.Text)
		return
	}

	var err error
	switch msg.MessageType {
	case types.MessageTypeGroup:
		logrus.Infof("回复群聊消息 - 群:%d 用户:%d 内容:%s", msg.GroupID, msg.UserID, msg.Reply.Text)
		err = s.sender.SendGroupMessage(msg.GroupID, msg.Reply.Text)
	case types.MessageTypePrivate:
		logrus.Infof("回复私聊消息 - 用户:%d 内容:%s", msg.UserID, msg.Reply.Text)
		err = s.sender.SendPrivateMessage(msg.UserID, msg.Reply.Text)
	default:
		logrus.Warnf("不支持回复的消息类型: %s", msg.MessageType)
		return
	}

	if err != nil {
		s.stats.IncrementSendErrors()
		targetID := msg.UserID
		if msg.MessageType == types.MessageTypeGroup {
			targetID = msg.GroupID
		}
		logrus.Errorf("%v", types.NewSendError(msg.MessageType, targetID, err))
		return
	}

	s.stats.IncrementRepliesSent()
	s.stats.AddBytesSent(uint64(len(msg.Reply.Text)))
}

func (s *ReplySink) Ready() <-chan struct{} {
	return s.ready
}

func (s *ReplySink) GetStats() *metrics.SinkMetrics {
	return s.stats
}
