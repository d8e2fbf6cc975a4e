package wordlib

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// 词库文本语法（装载与回写共用，保持稳定）：
//   - 词条之间用一个或多个空行分隔
//   - 以 // ## && 开头的行是注释，注释不打断词条
//   - 词条第一个非注释行为主触发表达式
//   - 词条头部可出现指令行：
//       触发:表达式   追加一条触发表达式
//       模式:精确|模糊 (exact/fuzzy) 覆盖默认匹配方式
//       优先级:整数    多词条同时命中时大者优先
//       状态:启用|禁用 (enable/disable) 禁用词条参与解析但不匹配
//     以及局部变量定义行 键:值（键不超过三个字符且整行不含%）
//   - #->var:名 定义多行局部变量：其后的行依次并入变量值（按\n拼接），
//     直到遇到下一个 #->var:、注释行或词条结束；名字缺省为 default_var
//   - 其余行构成回复体，可包含 如果:条件 / else / 如果尾 分支和 返回 指令
//
// 解析是输入文本的纯函数，同一文本重复解析得到完全相同的词条序列。
// 装载失败策略：任何一个词条非法都会使整次装载失败并保留旧快照，
// 不做词条级跳过，避免人工编辑出错后词库悄悄缺了一块。

type numberedLine struct {
	text string
	no   int
}

// Parse 解析一段完整的词库文本
func Parse(text string, opts Options) ([]*Rule, error) {
	return parseSource("", text, opts, 0)
}

func parseSource(source, text string, opts Options, startOrder int) ([]*Rule, error) {
	lines := strings.Split(text, "\n")

	var rules []*Rule
	var block []numberedLine
	blockIdx := 0

	flush := func() error {
		hasContent := false
		for _, l := range block {
			if !isCommentLine(l.text) {
				hasContent = true
				break
			}
		}
		if !hasContent {
			// 只有注释的段落不构成词条
			block = nil
			return nil
		}
		blockIdx++
		rule, err := parseBlock(source, blockIdx, block, opts, startOrder+len(rules))
		block = nil
		if err != nil {
			return err
		}
		rules = append(rules, rule)
		return nil
	}

	for i, raw := range lines {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		// 注释行不打断词条，但要保留给parseBlock：
		// 注释是 #->var: 行变量收集的终止符之一
		block = append(block, numberedLine{text: line, no: i + 1})
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return rules, nil
}

func isCommentLine(line string) bool {
	return strings.HasPrefix(line, "//") ||
		strings.HasPrefix(line, "##") ||
		strings.HasPrefix(line, "&&")
}

func parseBlock(source string, blockIdx int, lines []numberedLine, opts Options, order int) (*Rule, error) {
	rule := &Rule{
		Mode:    opts.defaultMode(),
		Enabled: true,
		Locals:  make(map[string]string),
		Source:  source,
		Block:   blockIdx,
		order:   order,
	}

	// 先摘出 #->var: 多行变量段，再剔除注释行，剩下的才是触发/指令/回复体
	firstNo := lines[0].no
	lines = extractLineVars(lines, rule.Locals)
	body := lines[:0:0]
	for _, l := range lines {
		if !isCommentLine(l.text) {
			body = append(body, l)
		}
	}
	lines = body
	if len(lines) == 0 {
		return nil, newParseError(source, blockIdx, firstNo, "词条缺少触发表达式")
	}

	// 第一行是主触发表达式，允许显式写成 触发:xxx 的形式
	first := lines[0]
	triggerText := strings.TrimSpace(strings.TrimPrefix(first.text, "触发:"))
	if triggerText == "" {
		return nil, newParseError(source, blockIdx, first.no, "触发表达式为空")
	}
	trigger, err := parseExprString(triggerText)
	if err != nil {
		return nil, newParseError(source, blockIdx, first.no, "触发表达式非法: %v", err)
	}
	rule.Triggers = append(rule.Triggers, trigger)
	rule.TriggerTexts = append(rule.TriggerTexts, triggerText)

	// 头部：指令行与局部变量定义，遇到首个回复行进入回复体
	i := 1
	for i < len(lines) {
		line := lines[i].text
		no := lines[i].no

		switch {
		case strings.HasPrefix(line, "触发:"):
			text := strings.TrimSpace(strings.TrimPrefix(line, "触发:"))
			if text == "" {
				return nil, newParseError(source, blockIdx, no, "触发表达式为空")
			}
			extra, err := parseExprString(text)
			if err != nil {
				return nil, newParseError(source, blockIdx, no, "触发表达式非法: %v", err)
			}
			rule.Triggers = append(rule.Triggers, extra)
			rule.TriggerTexts = append(rule.TriggerTexts, text)
			i++
			continue
		case strings.HasPrefix(line, "模式:"):
			mode, ok := parseMatchMode(strings.TrimSpace(strings.TrimPrefix(line, "模式:")))
			if !ok {
				return nil, newParseError(source, blockIdx, no, "未知的匹配模式: %s", line)
			}
			rule.Mode = mode
			i++
			continue
		case strings.HasPrefix(line, "优先级:"):
			pri, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "优先级:")))
			if err != nil {
				return nil, newParseError(source, blockIdx, no, "优先级必须是整数: %s", line)
			}
			rule.Priority = pri
			i++
			continue
		case strings.HasPrefix(line, "状态:"):
			enabled, ok := parseState(strings.TrimSpace(strings.TrimPrefix(line, "状态:")))
			if !ok {
				return nil, newParseError(source, blockIdx, no, "未知的状态: %s", line)
			}
			rule.Enabled = enabled
			i++
			continue
		}

		if key, value, ok := localVarDefinition(line); ok {
			rule.Locals[key] = value
			i++
			continue
		}

		break
	}

	// 回复体
	ops, next, err := parseOps(source, blockIdx, lines, i, nil)
	if err != nil {
		return nil, err
	}
	if next != len(lines) {
		// parseOps只会停在else/如果尾上
		return nil, newParseError(source, blockIdx, lines[next].no, "意外的 %s，没有对应的 如果:", lines[next].text)
	}
	rule.Response = ops
	rule.ID = ruleID(source, blockIdx, triggerText)
	return rule, nil
}

// parseOps 解析回复体指令序列，stop指定的行会让解析停下并交还控制权
func parseOps(source string, blockIdx int, lines []numberedLine, i int, stop func(string) bool) ([]ResponseOp, int, error) {
	var ops []ResponseOp
	for i < len(lines) {
		line := lines[i].text
		no := lines[i].no

		if stop != nil && stop(line) {
			return ops, i, nil
		}

		switch {
		case strings.HasPrefix(line, "如果:"):
			cond, err := parseCondString(strings.TrimPrefix(line, "如果:"))
			if err != nil {
				return nil, i, newParseError(source, blockIdx, no, "条件表达式非法: %v", err)
			}

			then, next, err := parseOps(source, blockIdx, lines, i+1, func(l string) bool {
				return l == "else" || l == "如果尾"
			})
			if err != nil {
				return nil, next, err
			}
			if next == len(lines) {
				return nil, next, newParseError(source, blockIdx, no, "如果: 缺少对应的 如果尾")
			}

			var elseOps []ResponseOp
			if lines[next].text == "else" {
				elseOps, next, err = parseOps(source, blockIdx, lines, next+1, func(l string) bool {
					return l == "如果尾"
				})
				if err != nil {
					return nil, next, err
				}
				if next == len(lines) {
					return nil, next, newParseError(source, blockIdx, no, "如果: 缺少对应的 如果尾")
				}
			}

			ops = append(ops, CondBlock{Cond: cond, Then: then, Else: elseOps})
			i = next + 1 // 跳过 如果尾
			continue
		case strings.HasPrefix(line, "返回"):
			ops = append(ops, ReturnLine{})
			i++
			continue
		case line == "else" || line == "如果尾":
			// 交给上层报错，带上准确的行号
			return ops, i, nil
		}

		expr, err := parseExprString(line)
		if err != nil {
			return nil, i, newParseError(source, blockIdx, no, "回复表达式非法: %v", err)
		}
		ops = append(ops, TextLine{Expr: expr})
		i++
	}
	return ops, i, nil
}

func parseMatchMode(s string) (MatchMode, bool) {
	switch strings.ToLower(s) {
	case "精确", "exact":
		return MatchExact, true
	case "模糊", "fuzzy":
		return MatchFuzzy, true
	default:
		return 0, false
	}
}

func parseState(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "启用", "enable":
		return true, true
	case "禁用", "停用", "disable":
		return false, true
	default:
		return false, false
	}
}

// extractLineVars 摘出词条中的 #->var: 多行变量段并写入locals
// 每段从 #->var:名 的下一行开始收集，遇到下一个 #->var: 或注释行停止，
// 内容按\n拼接；名字缺省为 default_var。返回去掉变量段后的剩余行。
func extractLineVars(lines []numberedLine, locals map[string]string) []numberedLine {
	rest := lines[:0:0]
	for i := 0; i < len(lines); {
		line := lines[i].text
		if !strings.HasPrefix(line, "#->var:") {
			rest = append(rest, lines[i])
			i++
			continue
		}

		name := strings.TrimSpace(strings.TrimPrefix(line, "#->var:"))
		if name == "" {
			name = "default_var"
		}

		var content []string
		i++
		for i < len(lines) {
			next := lines[i].text
			if strings.HasPrefix(next, "#->var:") || isCommentLine(next) {
				break
			}
			content = append(content, next)
			i++
		}
		locals[name] = strings.Join(content, "\n")
	}
	return rest
}

// localVarDefinition 判断是否为局部变量定义行：键不超过三个字符且整行不含%
// 含%的行几乎总是回复内容，按原始词库格式的约定排除
func localVarDefinition(line string) (string, string, bool) {
	if strings.Contains(line, "%") {
		return "", "", false
	}
	idx := strings.Index(line, ":")
	if idx <= 0 {
		return "", "", false
	}
	key := line[:idx]
	if utf8.RuneCountInString(key) > 3 || strings.ContainsAny(key, " \t") {
		return "", "", false
	}
	return key, strings.TrimSpace(line[idx+1:]), true
}
