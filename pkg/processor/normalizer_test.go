package processor

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lchliebedich/wordlib_bot/pkg/types"
)

// 测试消息文本展平：字符串形式剥掉CQ码
func TestFlattenMessageString(t *testing.T) {
	raw := json.RawMessage(`"你好 [CQ:image,file=abc.jpg] 世界"`)
	assert.Equal(t, "你好  世界", flattenMessage(raw, ""))

	raw = json.RawMessage(`"[CQ:at,qq=12345] 签到"`)
	assert.Equal(t, "签到", flattenMessage(raw, ""))
}

// 测试消息文本展平：数组形式只保留text段
func TestFlattenMessageSegments(t *testing.T) {
	raw := json.RawMessage(`[
		{"type":"at","data":{"qq":"12345"}},
		{"type":"text","data":{"text":"你好"}},
		{"type":"image","data":{"file":"abc.jpg"}},
		{"type":"text","data":{"text":"世界"}}
	]`)
	assert.Equal(t, "你好世界", flattenMessage(raw, ""))
}

// message字段缺失时回退到raw_message
func TestFlattenMessageFallback(t *testing.T) {
	assert.Equal(t, "签到", flattenMessage(nil, "[CQ:face,id=1]签到"))
}

// 测试完整的消息规整：协议字段和变量上下文
func TestNormalize(t *testing.T) {
	event := `{
		"time": 1748752245,
		"self_id": 10000,
		"post_type": "message",
		"message_type": "group",
		"message_id": 555,
		"user_id": 12345,
		"group_id": 67890,
		"message": "你好",
		"raw_message": "你好",
		"sender": {"nickname": "小明", "card": "群名片"}
	}`

	msg := &types.Message{ID: "test-1", RawEvent: []byte(event)}
	n := NewNormalizer(1)
	n.normalize(msg)

	assert.Equal(t, "group", msg.MessageType)
	assert.Equal(t, int64(12345), msg.UserID)
	assert.Equal(t, int64(67890), msg.GroupID)
	assert.Equal(t, "你好", msg.Text)
	// 群名片优先于昵称
	assert.Equal(t, "群名片", msg.SenderName)

	require.NotNil(t, msg.Context)
	assert.Equal(t, int64(1748752245), msg.Context.Timestamp.Unix())
	assert.Equal(t, "你好", msg.Context.Text)
	assert.Equal(t, "小明", func() string {
		e := &onebotMessageEvent{}
		e.Sender.Nickname = "小明"
		return senderName(e)
	}())
}

// 事件没有时间戳时用当前时间补上
func TestNormalizeMissingTimestamp(t *testing.T) {
	msg := &types.Message{ID: "test-2", Text: "离线回放"}
	n := NewNormalizer(1)
	n.normalize(msg)

	require.NotNil(t, msg.Context)
	assert.NotZero(t, msg.Timestamp)
	assert.Equal(t, msg.Timestamp, msg.Context.Timestamp.Unix())
}

// context取消后worker必须退出，即使下游已停止消费、输出通道写不进去
func TestNormalizerShutdownOnCancel(t *testing.T) {
	n := NewNormalizer(1)
	ctx, cancel := context.WithCancel(context.Background())

	in := make(chan *types.Message, 2)
	in <- &types.Message{ID: "m1", Text: "第一条"}
	in <- &types.Message{ID: "m2", Text: "第二条"}
	close(in)

	var wg sync.WaitGroup
	_, err := n.Process(ctx, in, &wg)
	require.NoError(t, err)

	// 不消费输出，直接取消；worker不能阻塞在输出通道的写上
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker未随context取消退出")
	}
}

// 非法的事件JSON记录错误但不中断流水线
func TestNormalizeBadEvent(t *testing.T) {
	msg := &types.Message{ID: "test-3", RawEvent: []byte("{不是JSON")}
	n := NewNormalizer(1)
	n.normalize(msg)

	assert.Error(t, msg.LastError)
	require.NotNil(t, msg.Context)
}
