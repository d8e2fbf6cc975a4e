package wordlib

import (
	"fmt"
	"strings"
)

// 表达式词法与语法分析
// 词法单元：文本段、%变量%引用、运算符&和|
// 反斜杠转义下一个字符，用于书写字面量的 % & | 本身

type tokKind int

const (
	tokText tokKind = iota + 1
	tokVar
	tokAnd
	tokOr
)

type token struct {
	kind tokKind
	text string
}

func lexExpr(s string) ([]token, error) {
	var toks []token
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, token{kind: tokText, text: cur.String()})
			cur.Reset()
		}
	}

	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		switch rs[i] {
		case '\\':
			if i+1 < len(rs) {
				i++
				cur.WriteRune(rs[i])
			} else {
				cur.WriteRune('\\')
			}
		case '%':
			end := -1
			for j := i + 1; j < len(rs); j++ {
				if rs[j] == '%' {
					end = j
					break
				}
			}
			if end < 0 {
				return nil, fmt.Errorf("变量引用未闭合: %q", string(rs[i:]))
			}
			name := string(rs[i+1 : end])
			if name == "" {
				return nil, fmt.Errorf("空的变量名: %%%%")
			}
			flush()
			toks = append(toks, token{kind: tokVar, text: name})
			i = end
		case '&':
			flush()
			toks = append(toks, token{kind: tokAnd})
		case '|':
			flush()
			toks = append(toks, token{kind: tokOr})
		default:
			cur.WriteRune(rs[i])
		}
	}
	flush()
	return toks, nil
}

// parseExprString 解析一行表达式，优先级为 & 高于 |，同级左结合
func parseExprString(s string) (Expr, error) {
	toks, err := lexExpr(s)
	if err != nil {
		return nil, err
	}
	return parseOrExpr(toks)
}

func parseOrExpr(toks []token) (Expr, error) {
	groups := splitTokens(toks, tokOr)
	var expr Expr
	for i, g := range groups {
		sub, err := parseAndExpr(g)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			expr = sub
		} else {
			expr = BinaryOp{Op: OpOr, Left: expr, Right: sub}
		}
	}
	return expr, nil
}

func parseAndExpr(toks []token) (Expr, error) {
	groups := splitTokens(toks, tokAnd)
	var expr Expr
	for i, g := range groups {
		sub, err := parseSeqExpr(g)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			expr = sub
		} else {
			expr = BinaryOp{Op: OpAnd, Left: expr, Right: sub}
		}
	}
	return expr, nil
}

// parseSeqExpr 把一组相邻词法单元解析为拼接节点
// 操作数两侧的空白在解析期去除，运算符周围可以自由留空格
func parseSeqExpr(toks []token) (Expr, error) {
	trimmed := make([]token, 0, len(toks))
	for i, t := range toks {
		if t.kind == tokText {
			text := t.text
			if i == 0 {
				text = strings.TrimLeft(text, " \t")
			}
			if i == len(toks)-1 {
				text = strings.TrimRight(text, " \t")
			}
			if text == "" {
				continue
			}
			trimmed = append(trimmed, token{kind: tokText, text: text})
			continue
		}
		trimmed = append(trimmed, t)
	}

	if len(trimmed) == 0 {
		return nil, fmt.Errorf("运算符缺少操作数")
	}

	parts := make([]Expr, 0, len(trimmed))
	for _, t := range trimmed {
		switch t.kind {
		case tokText:
			parts = append(parts, Literal{Text: t.text})
		case tokVar:
			parts = append(parts, VariableRef{Name: t.text})
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return Seq{Parts: parts}, nil
}

func splitTokens(toks []token, sep tokKind) [][]token {
	groups := [][]token{nil}
	for _, t := range toks {
		if t.kind == sep {
			groups = append(groups, nil)
			continue
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], t)
	}
	return groups
}

// 比较运算符按最长优先匹配，避免<=被拆成<和=
var cmpSymbols = []struct {
	sym string
	op  CmpOp
}{
	{"<=", CmpLe},
	{">=", CmpGe},
	{"==", CmpEq},
	{"!=", CmpNe},
	{"<", CmpLt},
	{">", CmpGt},
}

// parseCondString 解析 如果: 后面的条件表达式
// 逻辑组合沿用&和|，比较运算符只在文本段中识别，变量引用可出现在任一侧
func parseCondString(s string) (Cond, error) {
	toks, err := lexExpr(s)
	if err != nil {
		return nil, err
	}
	return parseCondOr(toks)
}

func parseCondOr(toks []token) (Cond, error) {
	groups := splitTokens(toks, tokOr)
	var cond Cond
	for i, g := range groups {
		sub, err := parseCondAnd(g)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			cond = sub
		} else {
			cond = CondBinary{Op: OpOr, Left: cond, Right: sub}
		}
	}
	return cond, nil
}

func parseCondAnd(toks []token) (Cond, error) {
	groups := splitTokens(toks, tokAnd)
	var cond Cond
	for i, g := range groups {
		sub, err := parseCompare(g)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			cond = sub
		} else {
			cond = CondBinary{Op: OpAnd, Left: cond, Right: sub}
		}
	}
	return cond, nil
}

func parseCompare(toks []token) (Cond, error) {
	for ti, t := range toks {
		if t.kind != tokText {
			continue
		}
		pos, sym, op := findCmpSymbol(t.text)
		if pos < 0 {
			continue
		}

		var left, right []token
		left = append(left, toks[:ti]...)
		if prefix := t.text[:pos]; prefix != "" {
			left = append(left, token{kind: tokText, text: prefix})
		}
		if suffix := t.text[pos+len(sym):]; suffix != "" {
			right = append(right, token{kind: tokText, text: suffix})
		}
		right = append(right, toks[ti+1:]...)

		leftExpr, err := parseSeqExpr(left)
		if err != nil {
			return nil, fmt.Errorf("比较运算符%s左侧缺少操作数", sym)
		}
		rightExpr, err := parseSeqExpr(right)
		if err != nil {
			return nil, fmt.Errorf("比较运算符%s右侧缺少操作数", sym)
		}
		return CondCompare{Op: op, Left: leftExpr, Right: rightExpr}, nil
	}

	expr, err := parseSeqExpr(toks)
	if err != nil {
		return nil, err
	}
	return CondTruthy{Expr: expr}, nil
}

// findCmpSymbol 返回文本中最靠左的比较运算符，同一位置取最长者
func findCmpSymbol(text string) (int, string, CmpOp) {
	bestPos := -1
	var bestSym string
	var bestOp CmpOp
	for _, c := range cmpSymbols {
		pos := strings.Index(text, c.sym)
		if pos < 0 {
			continue
		}
		if bestPos < 0 || pos < bestPos || (pos == bestPos && len(c.sym) > len(bestSym)) {
			bestPos = pos
			bestSym = c.sym
			bestOp = c.op
		}
	}
	return bestPos, bestSym, bestOp
}
