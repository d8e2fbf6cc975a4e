package wordlib

import (
	"strconv"
	"strings"
)

// MatchResult 一次成功匹配的结果
type MatchResult struct {
	Rule   *Rule
	Params map[string]string // 匹配派生的参数变量：参数1..N、参数量、参数-1
}

// Match 在快照中查找命中的词条，返回单一胜出者
// 多个词条同时命中时按优先级降序、装载顺序升序选取，结果可复现
// 没有词条命中是正常结果而不是错误，调用方通过第二个返回值区分
func (sn *Snapshot) Match(text string, ctx *Context) (*MatchResult, bool) {
	normMsg := normalize(text, sn.opts.CaseSensitive)

	var best *Rule
	for _, rule := range sn.Rules {
		if !rule.Enabled {
			continue
		}
		if best != nil && rule.Priority <= best.Priority {
			// 装载顺序靠前且优先级不低于当前词条，无需再比较
			continue
		}
		r := &resolver{ctx: ctx, locals: rule.Locals}
		for _, trigger := range rule.Triggers {
			if matchAgainst(trigger, normMsg, rule.Mode, r, sn.opts.CaseSensitive) {
				best = rule
				break
			}
		}
	}

	if best == nil {
		return nil, false
	}
	return &MatchResult{
		Rule:   best,
		Params: matchParams(text),
	}, true
}

// matchParams 从消息文本派生参数变量
// 按空白切分，第一个词视为触发词，其后依次为 参数1..参数N
func matchParams(text string) map[string]string {
	trimmed := strings.TrimSpace(text)
	fields := strings.Fields(trimmed)

	params := make(map[string]string, len(fields)+2)
	count := 0
	if len(fields) > 1 {
		for i, f := range fields[1:] {
			params["参数"+strconv.Itoa(i+1)] = f
		}
		count = len(fields) - 1
	}
	params["参数量"] = strconv.Itoa(count)
	params["参数-1"] = trimmed
	return params
}
