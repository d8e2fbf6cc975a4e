package sink

import (
	"github.com/sirupsen/logrus"
)

// LogSender 只把回复写进日志，不做真实投递
// 文件回放模式下没有可用的协议连接，用它代替真实发送方
type LogSender struct{}

func NewLogSender() *LogSender {
	return &LogSender{}
}

func (s *LogSender) SendPrivateMessage(userID int64, text string) error {
	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"reply":   text,
	}).Info("回放模式私聊回复")
	return nil
}

func (s *LogSender) SendGroupMessage(groupID int64, text string) error {
	logrus.WithFields(logrus.Fields{
		"group_id": groupID,
		"reply":    text,
	}).Info("回放模式群聊回复")
	return nil
}
