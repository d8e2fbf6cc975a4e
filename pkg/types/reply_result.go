package types

import "github.com/lchliebedich/wordlib_bot/pkg/wordlib"

// ReplyResult 表示词库引擎的匹配结果
// Matched为false表示没有任何词条命中，此时不发送任何回复；
// Matched为true且Text为空表示命中了静默词条，同样不发送，但计入命中统计
type ReplyResult struct {
	Matched bool          // 是否有词条命中
	Rule    *wordlib.Rule // 命中的词条
	Text    string        // 展开后的最终回复文本
}
