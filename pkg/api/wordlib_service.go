package api

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/lchliebedich/wordlib_bot/pkg/config"
	"github.com/lchliebedich/wordlib_bot/pkg/processor"
	"github.com/lchliebedich/wordlib_bot/pkg/wordlib"
)

// 响应结构体
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// StatsProvider 各组件向统计接口暴露指标的方式
type StatsProvider func() map[string]interface{}

// WordlibService 词库管理服务
// 词库文件是人工可编辑的纯文本，这里的写入接口只是GUI/脚本的便捷通道，
// 直接改文件再调reload效果完全一样
type WordlibService struct {
	engine     *processor.WordlibEngine
	wordlibDir string
	config     *config.Config
	startTime  time.Time
	stats      map[string]StatsProvider
}

// NewWordlibService 创建一个新的词库管理服务
func NewWordlibService(cfg *config.Config, engine *processor.WordlibEngine) *WordlibService {
	return &WordlibService{
		engine:     engine,
		wordlibDir: cfg.Wordlib.Dir,
		config:     cfg,
		startTime:  time.Now(),
		stats:      make(map[string]StatsProvider),
	}
}

// AddStatsProvider 注册一个统计来源
func (ws *WordlibService) AddStatsProvider(name string, provider StatsProvider) {
	ws.stats[name] = provider
}

// fileInfo 词库文件列表项
type fileInfo struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Entries  int    `json:"entries"` // 当前快照中来自该文件的词条数
	Loaded   bool   `json:"loaded"`
}

// GetFiles 列出词库目录下的所有词库文件
func (ws *WordlibService) GetFiles(c echo.Context) error {
	names, err := wordlib.ListFiles(ws.wordlibDir)
	if err != nil {
		return HandleError(c, NewInternalServerError(err))
	}

	snapshot := ws.engine.Store().Snapshot()
	entryCount := make(map[string]int)
	for _, rule := range snapshot.Rules {
		entryCount[rule.Source]++
	}
	loaded := make(map[string]bool)
	for _, f := range snapshot.Files {
		loaded[f] = true
	}

	files := make([]fileInfo, 0, len(names))
	for _, name := range names {
		info := fileInfo{
			Filename: name,
			Entries:  entryCount[name],
			Loaded:   loaded[name],
		}
		if st, err := os.Stat(filepath.Join(ws.wordlibDir, name)); err == nil {
			info.Size = st.Size()
		}
		files = append(files, info)
	}

	logrus.WithFields(logrus.Fields{
		"file_count": len(files),
		"operation":  "get_wordlib_files",
	}).Debug("获取词库文件列表")

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "获取词库文件列表成功",
		Data:    files,
	})
}

// GetFile 获取词库文件内容
func (ws *WordlibService) GetFile(c echo.Context) error {
	name := c.Param("name")
	if !validFileName(name) {
		return HandleError(c, NewInvalidNameError(name))
	}

	data, err := os.ReadFile(filepath.Join(ws.wordlibDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return HandleError(c, NewFileNotFoundError(name))
		}
		return HandleError(c, NewInternalServerError(err))
	}

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "获取词库文件成功",
		Data: map[string]string{
			"filename": name,
			"content":  string(data),
		},
	})
}

// PutFile 写入词库文件并重载
// 先整体校验再落盘，非法文本不会写进词库目录，生效中的词库不受影响
func (ws *WordlibService) PutFile(c echo.Context) error {
	name := c.Param("name")
	if !validFileName(name) {
		return HandleError(c, NewInvalidNameError(name))
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return HandleError(c, NewInternalServerError(err))
	}
	if len(body) == 0 {
		return HandleError(c, NewEmptyBodyError())
	}

	// 校验
	if _, err := ws.engine.Store().Validate(string(body)); err != nil {
		return HandleError(c, NewParseFailError(err))
	}

	// 保存到文件，使用配置的文件权限
	path := filepath.Join(ws.wordlibDir, name)
	if err := os.WriteFile(path, body, os.FileMode(ws.config.Permissions.FileMode)); err != nil {
		return HandleError(c, NewInternalServerError(err))
	}

	// 重载词库
	if err := ws.engine.ReloadRules(); err != nil {
		logrus.WithFields(logrus.Fields{
			"filename": name,
			"error":    err.Error(),
		}).Warn("写入后重载词库失败")
		return HandleError(c, NewReloadFailError(err))
	}

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "写入词库文件成功",
		Data: map[string]interface{}{
			"filename": name,
			"entries":  countEntries(ws.engine.Store().Snapshot(), name),
		},
	})
}

// DeleteFile 删除词库文件并重载
func (ws *WordlibService) DeleteFile(c echo.Context) error {
	name := c.Param("name")
	if !validFileName(name) {
		return HandleError(c, NewInvalidNameError(name))
	}

	path := filepath.Join(ws.wordlibDir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return HandleError(c, NewFileNotFoundError(name))
	}
	if err := os.Remove(path); err != nil {
		return HandleError(c, NewInternalServerError(err))
	}

	if err := ws.engine.ReloadRules(); err != nil {
		return HandleError(c, NewReloadFailError(err))
	}

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "删除词库文件成功",
	})
}

// ruleInfo 词条列表项，展示当前快照的解析结果
type ruleInfo struct {
	ID       string   `json:"id"`
	Triggers []string `json:"triggers"`
	Mode     string   `json:"mode"`
	Priority int      `json:"priority"`
	Enabled  bool     `json:"enabled"`
	Source   string   `json:"source"`
	Block    int      `json:"block"`
}

// GetRules 列出当前快照中的词条
func (ws *WordlibService) GetRules(c echo.Context) error {
	// 使用查询参数过滤词条
	source := c.QueryParam("source") //指定来源文件
	mode := c.QueryParam("mode")     //指定匹配模式

	snapshot := ws.engine.Store().Snapshot()
	rules := make([]ruleInfo, 0, len(snapshot.Rules))
	for _, rule := range snapshot.Rules {
		if source != "" && rule.Source != source {
			continue
		}
		if mode != "" && rule.Mode.String() != mode {
			continue
		}
		rules = append(rules, ruleInfo{
			ID:       rule.ID,
			Triggers: rule.TriggerTexts,
			Mode:     rule.Mode.String(),
			Priority: rule.Priority,
			Enabled:  rule.Enabled,
			Source:   rule.Source,
			Block:    rule.Block,
		})
	}

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "获取词条列表成功",
		Data: map[string]interface{}{
			"total":     len(snapshot.Rules),
			"rules":     rules,
			"loaded_at": snapshot.LoadedAt,
		},
	})
}

// Reload 重载词库
// 重载失败时旧快照保持生效，错误详情里带着出错词条的定位
func (ws *WordlibService) Reload(c echo.Context) error {
	if err := ws.engine.ReloadRules(); err != nil {
		return HandleError(c, NewReloadFailError(err))
	}

	snapshot := ws.engine.Store().Snapshot()
	logrus.WithFields(logrus.Fields{
		"rule_count": len(snapshot.Rules),
		"file_count": len(snapshot.Files),
		"operation":  "reload_wordlib",
	}).Info("词库重载成功")

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "词库重载成功",
		Data: map[string]interface{}{
			"entries": len(snapshot.Rules),
			"files":   snapshot.Files,
		},
	})
}

// Validate 校验词库文本，不改变生效中的词库
func (ws *WordlibService) Validate(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return HandleError(c, NewInternalServerError(err))
	}
	if len(body) == 0 {
		return HandleError(c, NewEmptyBodyError())
	}

	count, err := ws.engine.Store().Validate(string(body))
	if err != nil {
		return HandleError(c, NewParseFailError(err))
	}

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "词库文本校验通过",
		Data: map[string]interface{}{
			"entries": count,
		},
	})
}

// GetStats 运行统计
func (ws *WordlibService) GetStats(c echo.Context) error {
	data := map[string]interface{}{
		"uptime":  time.Since(ws.startTime).String(),
		"entries": len(ws.engine.Store().Snapshot().Rules),
	}
	for name, provider := range ws.stats {
		data[name] = provider()
	}

	return c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "获取统计成功",
		Data:    data,
	})
}

func countEntries(snapshot *wordlib.Snapshot, source string) int {
	count := 0
	for _, rule := range snapshot.Rules {
		if rule.Source == source {
			count++
		}
	}
	return count
}

// validFileName 词库文件名必须是.txt且不含路径成分
func validFileName(name string) bool {
	if name == "" || !strings.HasSuffix(name, ".txt") {
		return false
	}
	return filepath.Base(name) == name && !strings.Contains(name, "..")
}
