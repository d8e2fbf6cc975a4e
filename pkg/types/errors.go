package types

import "fmt"

type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %s: %v", e.Stage, e.Err)
}

func NewPipelineError(stage string, err error) error {
	return &PipelineError{Stage: stage, Err: err}
}

// SendError 表示回复发送阶段的错误，携带目标信息便于排查
type SendError struct {
	MessageType string
	TargetID    int64
	Err         error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send %s message to %d failed: %v", e.MessageType, e.TargetID, e.Err)
}

func NewSendError(messageType string, targetID int64, err error) error {
	return &SendError{MessageType: messageType, TargetID: targetID, Err: err}
}
