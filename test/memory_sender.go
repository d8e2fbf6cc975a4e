package main

import (
	"fmt"
	"sync"
)

// sentReply 记录一次发送的回复
type sentReply struct {
	MessageType string
	TargetID    int64
	Text        string
}

// MemorySender 是一个用于测试的内存发送端，记录所有发出的回复
type MemorySender struct {
	replies []sentReply
	mu      sync.Mutex
	failAll bool
}

// NewMemorySender 创建一个新的内存发送端
func NewMemorySender() *MemorySender {
	return &MemorySender{
		replies: make([]sentReply, 0),
	}
}

// SendPrivateMessage 记录私聊回复
func (s *MemorySender) SendPrivateMessage(userID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return fmt.Errorf("模拟的发送失败")
	}
	s.replies = append(s.replies, sentReply{MessageType: "private", TargetID: userID, Text: text})
	return nil
}

// SendGroupMessage 记录群聊回复
func (s *MemorySender) SendGroupMessage(groupID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return fmt.Errorf("模拟的发送失败")
	}
	s.replies = append(s.replies, sentReply{MessageType: "group", TargetID: groupID, Text: text})
	return nil
}

// GetReplies 获取记录的回复
func (s *MemorySender) GetReplies() []sentReply {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentReply, len(s.replies))
	copy(out, s.replies)
	return out
}

// SetFailAll 让后续所有发送都失败，用于测试发送错误路径
func (s *MemorySender) SetFailAll(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = fail
}
