package wordlib

import (
	"strconv"
	"time"
)

// Context 单条消息的变量上下文，每条消息处理前构建一次
// Timestamp在构建时采样一次，同一次回复展开中引用多次时间也保持一致
type Context struct {
	Timestamp   time.Time
	SelfID      int64
	UserID      int64
	GroupID     int64
	MessageID   int64
	MessageType string // private/group
	SenderName  string
	GroupName   string
	Text        string            // 原始消息文本
	Extra       map[string]string // 额外的自定义变量
}

// resolver 一次回复展开期间的变量查找器
// 查找顺序：匹配参数 > 词条局部变量 > Extra > 内置变量
// 未知变量统一解析为空字符串，绝不中断整条表达式的求值
type resolver struct {
	ctx    *Context
	locals map[string]string
	params map[string]string
}

func (r *resolver) resolve(name string) string {
	if r.params != nil {
		if v, ok := r.params[name]; ok {
			return v
		}
	}
	if r.locals != nil {
		if v, ok := r.locals[name]; ok {
			return v
		}
	}
	if r.ctx == nil {
		return ""
	}
	if r.ctx.Extra != nil {
		if v, ok := r.ctx.Extra[name]; ok {
			return v
		}
	}
	return r.ctx.builtin(name)
}

// builtin 内置变量表，名字沿用原词库格式的约定
// 时间类变量一律输出人类可读格式，只有显式以时间戳命名的变量给出数值
func (c *Context) builtin(name string) string {
	switch name {
	case "QQ", "Uin":
		return formatID(c.UserID)
	case "昵称", "UinName":
		return c.SenderName
	case "群号", "GroupId", "Groupid", "群":
		return formatID(c.GroupID)
	case "群名", "GroupName":
		return c.GroupName
	case "MSG":
		return c.Text
	case "MsgId":
		return formatID(c.MessageID)
	case "登录账号", "Account", "Robot":
		return formatID(c.SelfID)
	case "消息来源":
		switch c.MessageType {
		case "group":
			return "群聊消息"
		case "private":
			return "好友消息"
		default:
			return "其他消息"
		}
	case "时间", "time":
		return c.Timestamp.Format("15:04:05")
	case "日期", "date":
		return c.Timestamp.Format("2006-01-02")
	case "datetime":
		return c.Timestamp.Format("2006-01-02 15:04:05")
	case "时间戳":
		return strconv.FormatInt(c.Timestamp.Unix(), 10)
	case "时间戳毫秒":
		return strconv.FormatInt(c.Timestamp.UnixMilli(), 10)
	default:
		return ""
	}
}

// Resolve 按上下文解析单个变量名，供引擎外部（如管理接口预览）使用
func (c *Context) Resolve(name string) string {
	r := &resolver{ctx: c}
	return r.resolve(name)
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
