package source

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lchliebedich/wordlib_bot/pkg/metrics"
	"github.com/lchliebedich/wordlib_bot/pkg/types"
)

// FileSource 消息回放源，每行一条私聊消息文本，用于离线测试词库
// 行格式可选带发送者前缀：QQ号|昵称|消息文本，没有前缀时整行都是消息文本
type FileSource struct {
	file     *os.File
	output   chan *types.Message
	done     chan struct{}
	stats    *metrics.SourceMetrics
	filename string
}

func NewFileSource(filename string, bufferSize int) (*FileSource, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay file %s: %w", filename, err)
	}

	return &FileSource{
		file:     f,
		output:   make(chan *types.Message, bufferSize),
		filename: filename,
		stats:    &metrics.SourceMetrics{},
	}, nil
}

func (s *FileSource) Start(ctx context.Context, wg *sync.WaitGroup) error {
	s.done = make(chan struct{})
	logrus.Infof("Started replaying messages from file: %s", s.filename)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(s.output)
		defer s.file.Close()
		defer close(s.done)

		scanner := bufio.NewScanner(s.file)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			msg := parseReplayLine(line)
			select {
			case s.output <- msg:
				s.stats.IncrementEventsReceived()
				s.stats.IncrementMessagesAccepted()
				s.stats.AddBytesProcessed(uint64(len(line)))
			case <-ctx.Done():
				logrus.Info("Stopping message replay due to context cancellation")
				return
			}
		}
		if err := scanner.Err(); err != nil {
			s.stats.IncrementErrorCount()
			logrus.Warnf("Error reading replay file: %v", err)
		}
		logrus.Info("Reached end of replay file")
	}()

	return nil
}

func parseReplayLine(line string) *types.Message {
	msg := &types.Message{
		ID:          uuid.New().String(),
		Timestamp:   time.Now().Unix(),
		MessageType: types.MessageTypePrivate,
		Text:        line,
	}

	parts := strings.SplitN(line, "|", 3)
	if len(parts) == 3 {
		var userID int64
		if _, err := fmt.Sscanf(parts[0], "%d", &userID); err == nil {
			msg.UserID = userID
			msg.SenderName = parts[1]
			msg.Text = parts[2]
		}
	}
	return msg
}

func (s *FileSource) Output() <-chan *types.Message {
	return s.output
}

func (s *FileSource) GetStats() *metrics.SourceMetrics {
	return s.stats
}

func (s *FileSource) WaitForCompletion() <-chan struct{} {
	return s.done
}
