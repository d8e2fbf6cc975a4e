package wordlib

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matchAndExecute(t *testing.T, text, msg string, ctx *Context, opts Options) string {
	t.Helper()
	sn := loadSnapshot(t, text, opts)
	res, ok := sn.Match(msg, ctx)
	require.True(t, ok, "词条应当命中: %q", msg)
	return sn.Execute(res, ctx)
}

// 测试变量替换
func TestExecuteVariables(t *testing.T) {
	reply := matchAndExecute(t, "你好\n你好，%昵称%！你的QQ是%QQ%", "你好", testContext(), Options{})
	assert.Equal(t, "你好，小明！你的QQ是12345", reply)
}

// 多个回复行按行拼接
func TestExecuteMultiLine(t *testing.T) {
	reply := matchAndExecute(t, "菜单\n第一行\n第二行\n第三行", "菜单", testContext(), Options{})
	assert.Equal(t, "第一行\n第二行\n第三行", reply)
}

// 回复表达式中的&是拼接
func TestExecuteConcat(t *testing.T) {
	reply := matchAndExecute(t, "报时\n现在是 & %时间%", "报时", testContext(), Options{})
	assert.Equal(t, "现在是12:30:45", reply)
}

// 回复表达式中的|取第一个非空操作数，实现默认值回退
func TestExecuteOrFallback(t *testing.T) {
	// %custom%未定义，展开为空，回退到默认回复
	reply := matchAndExecute(t, "问候\n%custom% | 默认回复", "问候", testContext(), Options{})
	assert.Equal(t, "默认回复", reply)

	// 左侧非空时不触发回退
	ctx := testContext()
	ctx.Extra = map[string]string{"custom": "自定义回复"}
	reply = matchAndExecute(t, "问候\n%custom% | 默认回复", "问候", ctx, Options{})
	assert.Equal(t, "自定义回复", reply)
}

// 局部变量优先于内置变量
func TestExecuteLocalVariables(t *testing.T) {
	text := `抽签
签:大吉
你抽到了%签%`

	reply := matchAndExecute(t, text, "抽签", testContext(), Options{})
	assert.Equal(t, "你抽到了大吉", reply)
}

// #->var: 多行变量在回复中整体展开
func TestExecuteLineVariable(t *testing.T) {
	text := `菜单
#->var:列表
1. 签到
2. 帮助
// 列表到此为止
可用命令：
%列表%`

	reply := matchAndExecute(t, text, "菜单", testContext(), Options{})
	assert.Equal(t, "可用命令：\n1. 签到\n2. 帮助", reply)
}

// 匹配派生的参数变量可在回复中引用
func TestExecuteParams(t *testing.T) {
	text := `查询
模式:模糊
正在查询%参数1%，共%参数量%个参数`

	reply := matchAndExecute(t, text, "查询 天气", testContext(), Options{})
	assert.Equal(t, "正在查询天气，共1个参数", reply)
}

// 测试条件分支执行
func TestExecuteConditions(t *testing.T) {
	text := `查询
模式:模糊
如果:%参数量% == 0
请带上查询参数
else
正在查询%参数1%
如果尾`

	reply := matchAndExecute(t, text, "查询", testContext(), Options{})
	assert.Equal(t, "请带上查询参数", reply)

	reply = matchAndExecute(t, text, "查询 天气", testContext(), Options{})
	assert.Equal(t, "正在查询天气", reply)
}

// 测试数值比较条件
func TestExecuteNumericConditions(t *testing.T) {
	text := `检查
模式:模糊
如果:%参数量% >= 2
参数够了
else
参数不够
如果尾`

	reply := matchAndExecute(t, text, "检查 一 二", testContext(), Options{})
	assert.Equal(t, "参数够了", reply)

	reply = matchAndExecute(t, text, "检查 一", testContext(), Options{})
	assert.Equal(t, "参数不够", reply)
}

// 数值解析失败时比较条件不成立
func TestExecuteNumericConditionNonNumeric(t *testing.T) {
	text := `检查
模式:模糊
如果:%参数1% > 5
大于五
else
不大于五
如果尾`

	reply := matchAndExecute(t, text, "检查 abc", testContext(), Options{})
	assert.Equal(t, "不大于五", reply)
}

// 测试条件的逻辑组合
func TestExecuteConditionLogic(t *testing.T) {
	text := `组合
模式:模糊
如果:%消息来源% == 群聊消息 & %参数量% >= 1
群聊且有参数
else
其他情况
如果尾`

	reply := matchAndExecute(t, text, "组合 x", testContext(), Options{})
	assert.Equal(t, "群聊且有参数", reply)

	reply = matchAndExecute(t, text, "组合", testContext(), Options{})
	assert.Equal(t, "其他情况", reply)
}

// 测试 返回 指令：立即结束展开并产生静默回复
func TestExecuteReturn(t *testing.T) {
	text := `敏感词
模式:模糊
如果:%消息来源% == 群聊消息
返回
如果尾
私聊才回复`

	// 群聊消息触发返回，回复为空
	reply := matchAndExecute(t, text, "敏感词", testContext(), Options{})
	assert.Equal(t, "", reply)

	// 私聊消息走正常回复
	ctx := testContext()
	ctx.MessageType = "private"
	ctx.GroupID = 0
	reply = matchAndExecute(t, text, "敏感词", ctx, Options{})
	assert.Equal(t, "私聊才回复", reply)
}

// 静默词条：命中但回复体为空
func TestExecuteSilentRule(t *testing.T) {
	sn := loadSnapshot(t, "闭嘴", Options{})
	res, ok := sn.Match("闭嘴", testContext())
	require.True(t, ok)
	assert.Equal(t, "", sn.Execute(res, testContext()))
}

// 回复长度上限按字符数截断
func TestExecuteMaxReplyLength(t *testing.T) {
	text := `长文
这是一段很长很长的中文回复内容`

	reply := matchAndExecute(t, text, "长文", testContext(), Options{MaxReplyLength: 5})
	assert.Equal(t, "这是一段很", reply)
	assert.Equal(t, 5, len([]rune(reply)))

	// 不超限时不截断
	reply = matchAndExecute(t, text, "长文", testContext(), Options{MaxReplyLength: 100})
	assert.False(t, strings.HasSuffix(reply, "…"))
	assert.Equal(t, "这是一段很长很长的中文回复内容", reply)
}

// 未知变量展开为空字符串，不中断整条表达式
func TestExecuteUnknownVariable(t *testing.T) {
	reply := matchAndExecute(t, "测试\n前缀%不存在的变量%后缀", "测试", testContext(), Options{})
	assert.Equal(t, "前缀后缀", reply)
}
