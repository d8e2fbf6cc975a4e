package pipeline

import (
	"context"
	"sync"

	"github.com/lchliebedich/wordlib_bot/pkg/config"
	"github.com/lchliebedich/wordlib_bot/pkg/metrics"
	"github.com/lchliebedich/wordlib_bot/pkg/types"
)

// Source 定义消息来源接口
type Source interface {
	// Start 启动消息接收
	Start(ctx context.Context, wg *sync.WaitGroup) error
	// Output 返回消息输出channel
	Output() <-chan *types.Message
}

// Processor 定义消息处理器接口
type Processor interface {
	// Process 处理消息
	Process(ctx context.Context, in <-chan *types.Message, wg *sync.WaitGroup) (<-chan *types.Message, error)
	// Stage 返回处理器所属阶段
	Stage() types.Stage
	// Name 返回处理器的名称
	Name() string
	// CheckReady 检查处理器是否就绪
	CheckReady() error
}

// Sink 定义回复输出接口
type Sink interface {
	// Consume 消费处理后的消息
	Consume(ctx context.Context, in <-chan *types.Message) error
	// Ready 返回就绪信号channel
	Ready() <-chan struct{}
}

// Pipeline 定义处理流水线接口
type Pipeline interface {
	// AddProcessor 添加处理器
	AddProcessor(processor Processor) error
	// SetSource 设置消息来源
	SetSource(source Source)
	// SetSink 设置回复输出
	SetSink(sink Sink)
	// Start 启动流水线
	Start(ctx context.Context) error
	// Stop 停止流水线
	Stop() error
	// GetMetrics 获取处理器指标
	GetMetrics() map[string]*metrics.ProcessorMetrics
	// GetStats 获取流水线整体统计
	GetStats() map[string]interface{}
	// SetConfig 设置流水线配置
	SetConfig(*config.Config) error
	// Status 返回流水线状态
	Status() string
}
