package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lchliebedich/wordlib_bot/pkg/config"
	"github.com/lchliebedich/wordlib_bot/pkg/processor"
	"github.com/lchliebedich/wordlib_bot/pkg/wordlib"
)

func newTestService(t *testing.T) (*WordlibService, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.txt"), []byte("签到\n签到成功"), 0644))

	cfg := &config.Config{}
	cfg.Wordlib.Dir = dir
	cfg.Permissions.FileMode = 0644

	store := wordlib.NewStore(dir, wordlib.Options{})
	engine, err := processor.NewWordlibEngine(store)
	require.NoError(t, err)

	return NewWordlibService(cfg, engine), dir
}

func doRequest(t *testing.T, handler echo.HandlerFunc, method, target, body string, paramName, paramValue string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if paramName != "" {
		c.SetParamNames(paramName)
		c.SetParamValues(paramValue)
	}

	require.NoError(t, handler(c))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

// 测试列出词库文件
func TestGetFiles(t *testing.T) {
	ws, _ := newTestService(t)

	rec, resp := doRequest(t, ws.GetFiles, http.MethodGet, "/wordlib/files", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	files, ok := resp.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, files, 1)

	file := files[0].(map[string]interface{})
	assert.Equal(t, "base.txt", file["filename"])
	assert.Equal(t, float64(1), file["entries"])
	assert.Equal(t, true, file["loaded"])
}

// 测试获取词库文件内容
func TestGetFile(t *testing.T) {
	ws, _ := newTestService(t)

	rec, resp := doRequest(t, ws.GetFile, http.MethodGet, "/wordlib/files/base.txt", "", "name", "base.txt")
	assert.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "签到\n签到成功", data["content"])

	// 不存在的文件
	rec, _ = doRequest(t, ws.GetFile, http.MethodGet, "/wordlib/files/missing.txt", "", "name", "missing.txt")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// 带路径成分的文件名被拒绝
	rec, _ = doRequest(t, ws.GetFile, http.MethodGet, "/wordlib/files/x", "", "name", "../etc/passwd")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// 写入合法词库文件后立即重载生效
func TestPutFile(t *testing.T) {
	ws, dir := newTestService(t)

	rec, _ := doRequest(t, ws.PutFile, http.MethodPut, "/wordlib/files/extra.txt",
		"帮助\n帮助信息", "name", "extra.txt")
	assert.Equal(t, http.StatusOK, rec.Code)

	// 文件已落盘
	_, err := os.Stat(filepath.Join(dir, "extra.txt"))
	assert.NoError(t, err)

	// 新词条已生效
	sn := ws.engine.Store().Snapshot()
	assert.Len(t, sn.Rules, 2)
}

// 非法词库文本被拒绝，不落盘也不影响生效中的词库
func TestPutFileInvalidContent(t *testing.T) {
	ws, dir := newTestService(t)
	before := ws.engine.Store().Snapshot()

	rec, resp := doRequest(t, ws.PutFile, http.MethodPut, "/wordlib/files/bad.txt",
		"坏词条\n未闭合的%变量", "name", "bad.txt")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 错误详情带着词条定位
	data := resp.Data.(map[string]interface{})
	assert.Contains(t, data["error_detail"], "词条")

	_, err := os.Stat(filepath.Join(dir, "bad.txt"))
	assert.True(t, os.IsNotExist(err))
	assert.Same(t, before, ws.engine.Store().Snapshot())
}

// 空请求体被拒绝
func TestPutFileEmptyBody(t *testing.T) {
	ws, _ := newTestService(t)

	rec, _ := doRequest(t, ws.PutFile, http.MethodPut, "/wordlib/files/x.txt", "", "name", "x.txt")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// 测试删除词库文件
func TestDeleteFile(t *testing.T) {
	ws, dir := newTestService(t)

	rec, _ := doRequest(t, ws.DeleteFile, http.MethodPost, "/wordlib/files/base.txt/delete", "", "name", "base.txt")
	assert.Equal(t, http.StatusOK, rec.Code)

	_, err := os.Stat(filepath.Join(dir, "base.txt"))
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, ws.engine.Store().Snapshot().Rules)

	// 再删一次报404
	rec, _ = doRequest(t, ws.DeleteFile, http.MethodPost, "/wordlib/files/base.txt/delete", "", "name", "base.txt")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// 测试词条列表
func TestGetRules(t *testing.T) {
	ws, _ := newTestService(t)

	rec, resp := doRequest(t, ws.GetRules, http.MethodGet, "/wordlib/rules", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["total"])

	rules := data["rules"].([]interface{})
	rule := rules[0].(map[string]interface{})
	assert.Equal(t, "base.txt", rule["source"])
	assert.Equal(t, "精确", rule["mode"])
	assert.Equal(t, true, rule["enabled"])
}

// 测试手动重载
func TestReloadEndpoint(t *testing.T) {
	ws, dir := newTestService(t)

	// 直接改文件再调重载
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.txt"), []byte("签到\n新回复\n\n帮助\n帮助信息"), 0644))

	rec, _ := doRequest(t, ws.Reload, http.MethodPost, "/wordlib/reload", "", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, ws.engine.Store().Snapshot().Rules, 2)

	// 写坏文件后重载失败，旧快照保持生效
	before := ws.engine.Store().Snapshot()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.txt"), []byte("坏词条\n%未闭合"), 0644))

	rec, resp := doRequest(t, ws.Reload, http.MethodPost, "/wordlib/reload", "", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, resp.Message, "当前词库保持生效")
	assert.Same(t, before, ws.engine.Store().Snapshot())
}

// 测试词库文本校验接口
func TestValidateEndpoint(t *testing.T) {
	ws, _ := newTestService(t)
	before := ws.engine.Store().Snapshot()

	rec, resp := doRequest(t, ws.Validate, http.MethodPost, "/wordlib/validate",
		"签到\n签到成功\n\n帮助\n帮助信息", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["entries"])

	// 校验不替换快照
	assert.Same(t, before, ws.engine.Store().Snapshot())

	// 非法文本
	rec, _ = doRequest(t, ws.Validate, http.MethodPost, "/wordlib/validate", "坏词条\n%未闭合", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// 测试文件名校验
func TestValidFileName(t *testing.T) {
	assert.True(t, validFileName("base.txt"))
	assert.True(t, validFileName("词库-01.txt"))

	assert.False(t, validFileName(""))
	assert.False(t, validFileName("base.md"))
	assert.False(t, validFileName("../base.txt"))
	assert.False(t, validFileName("sub/base.txt"))
}
