package wordlib

import (
	"fmt"

	"github.com/google/uuid"
)

// MatchMode 词条的匹配方式
type MatchMode int

const (
	MatchExact MatchMode = iota + 1 // 精确匹配：规整后全文相等
	MatchFuzzy                      // 模糊匹配：触发文本是消息的子串
)

func (m MatchMode) String() string {
	switch m {
	case MatchExact:
		return "精确"
	case MatchFuzzy:
		return "模糊"
	default:
		return "未知"
	}
}

// ResponseOp 回复体中的一条指令
type ResponseOp interface {
	isResponseOp()
}

// TextLine 普通回复行，展开后按行拼接
type TextLine struct {
	Expr Expr
}

// CondBlock 如果:/else/如果尾 条件分支
type CondBlock struct {
	Cond Cond
	Then []ResponseOp
	Else []ResponseOp
}

// ReturnLine 返回指令：立即结束展开，产生静默回复
type ReturnLine struct{}

func (TextLine) isResponseOp()   {}
func (CondBlock) isResponseOp()  {}
func (ReturnLine) isResponseOp() {}

// Rule 表示一个词库条目
// 装载完成后不再修改，快照发布后的词条对所有读者只读
type Rule struct {
	ID           string            // 条目ID，由来源和触发词确定性派生
	Triggers     []Expr            // 触发表达式，至少一条
	TriggerTexts []string          // 触发表达式原文，供管理接口展示
	Response     []ResponseOp      // 回复体指令序列，可以为空（静默词条）
	Mode         MatchMode         // 匹配方式
	Priority     int               // 优先级，数值大者先命中
	Enabled      bool              // 禁用的词条参与解析但永不匹配
	Locals       map[string]string // 条目内定义的局部变量
	Source       string            // 来源文件名
	Block        int               // 在来源文本中的词条序号，从1开始

	order int // 全局装载顺序，优先级相同时序号小者胜出
}

// Order 返回词条的全局装载顺序
func (r *Rule) Order() int {
	return r.order
}

// ruleID 根据来源、词条序号和触发词原文派生确定性ID
// 同一文本重复解析必须得到完全相同的词条序列，所以不能使用随机ID
func ruleID(source string, block int, trigger string) string {
	name := fmt.Sprintf("%s#%d:%s", source, block, trigger)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// ParseError 词库文本解析错误，定位到具体词条和行号
// 解析失败不会影响当前生效的词库快照
type ParseError struct {
	Source string // 来源文件名，内联装载时为空
	Block  int    // 词条序号，从1开始
	Line   int    // 行号，从1开始
	Reason string
}

func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s 词条%d (第%d行): %s", e.Source, e.Block, e.Line, e.Reason)
	}
	return fmt.Sprintf("词条%d (第%d行): %s", e.Block, e.Line, e.Reason)
}

func newParseError(source string, block, line int, format string, args ...interface{}) *ParseError {
	return &ParseError{
		Source: source,
		Block:  block,
		Line:   line,
		Reason: fmt.Sprintf(format, args...),
	}
}
