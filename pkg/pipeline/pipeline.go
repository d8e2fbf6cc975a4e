package pipeline

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lchliebedich/wordlib_bot/pkg/config"
	"github.com/lchliebedich/wordlib_bot/pkg/metrics"
	"github.com/lchliebedich/wordlib_bot/pkg/types"
)

type pipeline struct {
	source     Source
	processors []Processor
	sink       Sink
	running    bool
	mu         sync.Mutex
	errChan    chan error
	errMu      sync.Mutex // 保护errChan的关闭与写入
	errClosed  bool
	status     string
	metrics    map[string]*metrics.ProcessorMetrics
	config     *config.Config
	startTime  time.Time
	wg         sync.WaitGroup // 用于跟踪所有goroutine
}

func NewPipeline() Pipeline {
	return &pipeline{
		processors: make([]Processor, 0),
		errChan:    make(chan error, 1),
		metrics:    make(map[string]*metrics.ProcessorMetrics),
		status:     "initialized",
	}
}

func (p *pipeline) AddProcessor(processor Processor) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return fmt.Errorf("cannot add processor while pipeline is running")
	}

	p.processors = append(p.processors, processor)
	// 按Stage排序处理器
	sort.Slice(p.processors, func(i, j int) bool {
		return p.processors[i].Stage() < p.processors[j].Stage()
	})

	return nil
}

func (p *pipeline) SetSource(source Source) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = source
}

func (p *pipeline) SetSink(sink Sink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sink = sink
}

func (p *pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return types.NewPipelineError("start", fmt.Errorf("pipeline already running"))
	}

	// 重置 WaitGroup
	p.wg = sync.WaitGroup{}

	p.running = true
	p.startTime = time.Now()
	p.status = "starting"
	p.metrics = make(map[string]*metrics.ProcessorMetrics)
	p.mu.Unlock()

	p.errMu.Lock()
	p.errChan = make(chan error, 100)
	p.errClosed = false
	p.errMu.Unlock()

	// 为每个处理器初始化指标对象
	for _, proc := range p.processors {
		p.metrics[proc.Name()] = &metrics.ProcessorMetrics{}
	}

	logrus.Info("Starting pipeline")

	// 启动错误处理goroutine
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.handleErrors(ctx)
	}()

	var input <-chan *types.Message = p.source.Output()
	var err error

	// 前一个stage阶段处理器的处理结果直接传递给下一个stage阶段的处理器
	for _, proc := range p.processors {
		logrus.Debugf("Starting processor at stage: %v", proc.Stage())
		input, err = proc.Process(ctx, input, &p.wg)
		if err != nil {
			logrus.Errorf("Failed to start processor at stage %v: %v", proc.Stage(), err)
			p.reportError(fmt.Errorf("failed to start processor: %w", err))
		}
	}

	// 1. 首先检查所有处理器是否就绪
	processorReady := make(chan struct{})
	go func() {
		for _, processor := range p.processors {
			if err := processor.CheckReady(); err != nil {
				logrus.Errorf("Processor %s not ready: %v", processor.Name(), err)
				p.reportError(fmt.Errorf("processor not ready: %w", err))
				return
			}
		}
		close(processorReady)
	}()

	// 2. 等待处理器就绪，设置超时
	select {
	case <-processorReady:
		logrus.Debug("All processors are ready")
	case <-time.After(10 * time.Second):
		return types.NewPipelineError("start", fmt.Errorf("timeout waiting for processors to be ready"))
	}

	logrus.Info("All processors have started successfully")

	// 3. 处理器就绪后，再启动sink
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.sink.Consume(ctx, input); err != nil {
			logrus.Errorf("Sink error: %v", err)
			p.reportError(fmt.Errorf("sink error: %w", err))
		}
	}()

	// 4. 等待sink就绪
	select {
	case <-p.sink.Ready():
		logrus.Debug("Sink is ready")
	case <-time.After(5 * time.Second):
		return types.NewPipelineError("start", fmt.Errorf("timeout waiting for sink to be ready"))
	}

	logrus.Info("Sink have started successfully")

	// 5. 最后启动消息源，开始消息流转
	if err := p.source.Start(ctx, &p.wg); err != nil {
		logrus.Errorf("Failed to start source: %v", err)
		return fmt.Errorf("failed to start source: %w", err)
	}

	logrus.Info("Message source have started successfully")

	p.status = "running"
	return nil
}

func (p *pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return nil
	}

	p.status = "stopping"
	logrus.Info("Pipeline stopping...")

	// 1. 先设置状态，防止新的goroutine启动
	p.running = false

	// 2. 关闭错误通道，停止错误处理 goroutine
	// 先标记errClosed，之后的reportError只记日志不再写通道
	p.errMu.Lock()
	if p.errChan != nil && !p.errClosed {
		p.errClosed = true
		close(p.errChan)
	}
	p.errMu.Unlock()

	// 3. 等待所有处理器完成
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logrus.Info("All processors completed gracefully")
	case <-time.After(30 * time.Second):
		logrus.Warn("Timeout waiting for processors to complete")
	}

	// 4. 清理处理器资源
	for _, processor := range p.processors {
		if cleaner, ok := processor.(interface{ Cleanup() error }); ok {
			if err := cleaner.Cleanup(); err != nil {
				logrus.Errorf("Error cleaning up processor %s: %v", processor.Name(), err)
			}
		}
	}

	p.status = "stopped"
	p.processors = nil
	p.metrics = make(map[string]*metrics.ProcessorMetrics)
	p.startTime = time.Time{}

	logrus.Info("Pipeline stopped and cleaned up")
	return nil
}

// reportError 向错误通道上报错误，Stop之后只记日志，避免向已关闭通道写入
func (p *pipeline) reportError(err error) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	if p.errClosed || p.errChan == nil {
		logrus.Errorf("Pipeline error after shutdown: %v", err)
		return
	}
	select {
	case p.errChan <- err:
	default:
		logrus.Errorf("Pipeline error (queue full): %v", err)
	}
}

func (p *pipeline) handleErrors(ctx context.Context) {
	logrus.Debug("Starting error handler")
	for {
		select {
		case err, ok := <-p.errChan:
			if !ok {
				logrus.Debug("Error channel closed, stopping error handler")
				return
			}
			logrus.Errorf("Pipeline error: %v", err)
		case <-ctx.Done():
			logrus.Debug("Context cancelled, stopping error handler")
			return
		}
	}
}

// GetStats 资源统计
func (p *pipeline) GetStats() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	return map[string]interface{}{
		"status":     p.status,
		"uptime":     time.Since(p.startTime).String(),
		"processors": len(p.processors),
		"metrics":    p.metrics,
	}
}

// GetMetrics 实现Pipeline接口的GetMetrics方法
func (p *pipeline) GetMetrics() map[string]*metrics.ProcessorMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.metrics
}

// SetConfig 实现Pipeline接口的SetConfig方法
func (p *pipeline) SetConfig(cfg *config.Config) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running {
		return types.NewPipelineError("config", fmt.Errorf("cannot set config while pipeline is running"))
	}

	if err := cfg.Validate(); err != nil {
		return types.NewPipelineError("config", err)
	}

	p.config = cfg
	return nil
}

// Status 实现Pipeline接口的Status方法
func (p *pipeline) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}
