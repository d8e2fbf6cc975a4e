package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/lchliebedich/wordlib_bot/pkg/metrics"
	"github.com/lchliebedich/wordlib_bot/pkg/types"
	"github.com/lchliebedich/wordlib_bot/pkg/wordlib"
)

// WordlibEngine 词库匹配处理器
// 词条集由Store以不可变快照持有，匹配侧无锁读取；重载通过原子交换完成，
// 处理中的消息继续使用旧快照，后续消息看到新快照，不存在半新半旧的词条集
type WordlibEngine struct {
	store   *wordlib.Store
	metrics *metrics.ProcessorMetrics
}

// NewWordlibEngine 创建词库引擎并完成首次装载
// 首次装载失败不算致命错误：词库目录可能还是空的，等待用户通过管理接口补齐
func NewWordlibEngine(store *wordlib.Store) (*WordlibEngine, error) {
	if store == nil {
		return nil, fmt.Errorf("词库存储不能为空")
	}
	if err := store.Reload(); err != nil {
		logrus.Warnf("词库初始装载失败: %v", err)
	} else {
		logrus.Infof("词库装载成功，共 %d 条词条", len(store.Snapshot().Rules))
	}

	return &WordlibEngine{
		store:   store,
		metrics: &metrics.ProcessorMetrics{},
	}, nil
}

func (e *WordlibEngine) Stage() types.Stage {
	return types.StageWordlibEval
}

func (e *WordlibEngine) Name() string {
	return "wordlib_engine"
}

func (e *WordlibEngine) CheckReady() error {
	if e.store.Snapshot() == nil {
		return fmt.Errorf("词库快照未初始化")
	}
	return nil
}

func (e *WordlibEngine) Metrics() *metrics.ProcessorMetrics {
	return e.metrics
}

// Store 返回底层词库存储，供管理接口触发重载/校验
func (e *WordlibEngine) Store() *wordlib.Store {
	return e.store
}

// ReloadRules 重新装载词库
// 装载失败时旧快照原样生效，错误原样返回给调用方展示
func (e *WordlibEngine) ReloadRules() error {
	return e.store.Reload()
}

// Process 消费规整后的消息，逐条匹配词库并生成回复
// 匹配与展开都是纯内存计算，单goroutine顺序处理已经足够
func (e *WordlibEngine) Process(ctx context.Context, in <-chan *types.Message, wg *sync.WaitGroup) (<-chan *types.Message, error) {
	out := make(chan *types.Message)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(out)

		for msg := range in {
			start := time.Now()
			e.evaluate(msg)
			e.metrics.AddProcessingTime(time.Since(start))
			e.metrics.IncrementProcessed()

			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

func (e *WordlibEngine) evaluate(msg *types.Message) {
	if msg.Context == nil || msg.Text == "" {
		msg.Reply = &types.ReplyResult{}
		e.metrics.IncrementNoMatch()
		return
	}

	snapshot := e.store.Snapshot()
	result, ok := snapshot.Match(msg.Text, msg.Context)
	if !ok {
		// 无词条命中是正常结果，记录后原样传递
		msg.Reply = &types.ReplyResult{}
		e.metrics.IncrementNoMatch()
		logrus.Debugf("词库无匹配: %q", msg.Text)
		return
	}

	text := snapshot.Execute(result, msg.Context)
	msg.Reply = &types.ReplyResult{
		Matched: true,
		Rule:    result.Rule,
		Text:    text,
	}
	e.metrics.IncrementMatched()
	if text == "" {
		e.metrics.IncrementSilentReplies()
	}
	logrus.Debugf("词条命中: %q -> 词条%d(%s)", msg.Text, result.Rule.Block, result.Rule.Source)
}
