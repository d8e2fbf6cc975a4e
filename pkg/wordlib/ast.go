package wordlib

import (
	"strconv"
	"strings"
)

// 表达式在装载时一次性解析为AST，消息处理阶段只做求值，不再做任何文本解析
// AST节点共四种：字面量、%变量%引用、顺序拼接、二元运算符(&和|)

type Op int

const (
	OpAnd Op = iota + 1 // & 触发角色为"同时满足"，回复角色为"拼接"
	OpOr                // | 触发角色为"任一满足"，回复角色为"左值非空则取左值"
)

func (op Op) String() string {
	switch op {
	case OpAnd:
		return "&"
	case OpOr:
		return "|"
	default:
		return "?"
	}
}

// Expr 表达式AST节点
type Expr interface {
	isExpr()
}

// Literal 字面量文本段
type Literal struct {
	Text string
}

// VariableRef %名字%形式的变量引用
type VariableRef struct {
	Name string
}

// Seq 相邻段的顺序拼接，如 "你好%昵称%"
type Seq struct {
	Parts []Expr
}

// BinaryOp 二元运算节点，&比|结合更紧，同级左结合
type BinaryOp struct {
	Op    Op
	Left  Expr
	Right Expr
}

func (Literal) isExpr()     {}
func (VariableRef) isExpr() {}
func (Seq) isExpr()         {}
func (BinaryOp) isExpr()    {}

// CmpOp 条件语句中的比较运算符
type CmpOp int

const (
	CmpEq CmpOp = iota + 1 // ==
	CmpNe                  // !=
	CmpLt                  // <
	CmpLe                  // <=
	CmpGt                  // >
	CmpGe                  // >=
)

// Cond 条件表达式AST节点，用于 如果: 语句
type Cond interface {
	isCond()
}

// CondCompare 两侧表达式求值后比较
// ==和!=按字符串比较，其余按数值比较，数值解析失败时条件不成立
type CondCompare struct {
	Op    CmpOp
	Left  Expr
	Right Expr
}

// CondTruthy 无比较运算符的裸表达式：非零数值或true/1/yes视为成立
type CondTruthy struct {
	Expr Expr
}

// CondBinary 条件的逻辑组合
type CondBinary struct {
	Op    Op
	Left  Cond
	Right Cond
}

func (CondCompare) isCond() {}
func (CondTruthy) isCond()  {}
func (CondBinary) isCond()  {}

// render 按回复角色对表达式求值
// 字面量原样输出，变量经resolver解析，&为拼接，|取第一个非空操作数
func render(e Expr, r *resolver) string {
	switch v := e.(type) {
	case Literal:
		return v.Text
	case VariableRef:
		return r.resolve(v.Name)
	case Seq:
		var b strings.Builder
		for _, p := range v.Parts {
			b.WriteString(render(p, r))
		}
		return b.String()
	case BinaryOp:
		left := render(v.Left, r)
		switch v.Op {
		case OpAnd:
			return left + render(v.Right, r)
		case OpOr:
			if left != "" {
				return left
			}
			return render(v.Right, r)
		}
	}
	return ""
}

// matchAgainst 按触发角色对表达式求值
// 叶子节点先展开为文本再与规整后的消息比较，运算符节点做布尔组合
func matchAgainst(e Expr, normMsg string, mode MatchMode, r *resolver, caseSensitive bool) bool {
	switch v := e.(type) {
	case BinaryOp:
		switch v.Op {
		case OpAnd:
			return matchAgainst(v.Left, normMsg, mode, r, caseSensitive) &&
				matchAgainst(v.Right, normMsg, mode, r, caseSensitive)
		case OpOr:
			return matchAgainst(v.Left, normMsg, mode, r, caseSensitive) ||
				matchAgainst(v.Right, normMsg, mode, r, caseSensitive)
		}
		return false
	default:
		pattern := normalize(render(e, r), caseSensitive)
		if pattern == "" {
			// 空触发文本永不命中，避免空词条吞掉所有消息
			return false
		}
		if mode == MatchFuzzy {
			return strings.Contains(normMsg, pattern)
		}
		return normMsg == pattern
	}
}

// evalCond 对条件表达式求值
func evalCond(c Cond, r *resolver) bool {
	switch v := c.(type) {
	case CondBinary:
		switch v.Op {
		case OpAnd:
			return evalCond(v.Left, r) && evalCond(v.Right, r)
		case OpOr:
			return evalCond(v.Left, r) || evalCond(v.Right, r)
		}
		return false
	case CondCompare:
		left := strings.TrimSpace(render(v.Left, r))
		right := strings.TrimSpace(render(v.Right, r))
		switch v.Op {
		case CmpEq:
			return left == right
		case CmpNe:
			return left != right
		}
		lf, lerr := strconv.ParseFloat(left, 64)
		rf, rerr := strconv.ParseFloat(right, 64)
		if lerr != nil || rerr != nil {
			return false
		}
		switch v.Op {
		case CmpLt:
			return lf < rf
		case CmpLe:
			return lf <= rf
		case CmpGt:
			return lf > rf
		case CmpGe:
			return lf >= rf
		}
		return false
	case CondTruthy:
		val := strings.TrimSpace(render(v.Expr, r))
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f != 0
		}
		switch strings.ToLower(val) {
		case "true", "1", "yes":
			return true
		}
		return false
	}
	return false
}

// normalize 匹配前的文本规整：去除首尾空白，默认不区分大小写
func normalize(s string, caseSensitive bool) string {
	s = strings.TrimSpace(s)
	if !caseSensitive {
		s = strings.ToLower(s)
	}
	return s
}
