package wordlib

import "strings"

// Execute 展开命中词条的回复体，返回最终回复文本
// 空字符串是合法结果（静默词条），与"没有词条命中"由调用方通过Match区分
func (sn *Snapshot) Execute(res *MatchResult, ctx *Context) string {
	r := &resolver{ctx: ctx, locals: res.Rule.Locals, params: res.Params}

	lines, _ := executeOps(res.Rule.Response, r)
	text := strings.Join(lines, "\n")

	if max := sn.opts.MaxReplyLength; max > 0 {
		if runes := []rune(text); len(runes) > max {
			text = string(runes[:max])
		}
	}
	return text
}

// executeOps 依次执行回复体指令，第二个返回值表示遇到了 返回 指令
func executeOps(ops []ResponseOp, r *resolver) ([]string, bool) {
	var lines []string
	for _, op := range ops {
		switch v := op.(type) {
		case TextLine:
			lines = append(lines, render(v.Expr, r))
		case CondBlock:
			branch := v.Else
			if evalCond(v.Cond, r) {
				branch = v.Then
			}
			sub, returned := executeOps(branch, r)
			if returned {
				return nil, true
			}
			lines = append(lines, sub...)
		case ReturnLine:
			return nil, true
		}
	}
	return lines, false
}
