package types

import "github.com/lchliebedich/wordlib_bot/pkg/wordlib"

// Message 表示处理流水线中传递的消息
type Message struct {
	ID        string // 流水线内部的消息ID
	Timestamp int64  // 消息时间戳(unix秒)
	RawEvent  []byte // OneBot原始事件JSON

	// 协议字段，由normalizer填充
	MessageType string // private/group
	MessageID   int64  // OneBot消息ID
	SelfID      int64  // 登录账号
	UserID      int64  // 发送者QQ号
	GroupID     int64  // 群号，私聊时为0
	SenderName  string // 发送者昵称
	GroupName   string // 群名称，私聊时为空
	Text        string // 展平后的纯文本消息

	Context   *wordlib.Context // 词库引擎使用的变量上下文
	Reply     *ReplyResult     // 词库匹配结果
	LastError error            // 处理过程中的最后一次错误
}

// MessageTypePrivate 和 MessageTypeGroup 对应OneBot的message_type字段
const (
	MessageTypePrivate = "private"
	MessageTypeGroup   = "group"
)

// Stage 表示处理阶段的状态
type Stage int

const (
	StageNormalize   Stage = iota + 1 //消息规整与上下文构建
	StageWordlibEval                  //词库匹配与回复生成
)
