package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// 测试完整配置装载
func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
server:
  host: "0.0.0.0"
  port: "8080"
  path: "/onebot/v11/ws"
api:
  host: "127.0.0.1"
  port: "8081"
pipeline:
  worker_count: 4
  buffer_size: 1000
wordlib:
  dir: "data/wordlib"
  default_match_mode: "exact"
  auto_reload: true
  max_reply_length: 500
source:
  type: "onebot"
log:
  level: "INFO"
  dir: "logs"
  filename: "wordlib_bot.log"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "data/wordlib", cfg.Wordlib.Dir)
	assert.Equal(t, "exact", cfg.Wordlib.DefaultMatchMode)
	assert.True(t, cfg.Wordlib.AutoReload)
	assert.Equal(t, 500, cfg.Wordlib.MaxReplyLength)
	assert.Equal(t, 4, cfg.Pipeline.WorkerCount)
}

// 缺省字段由默认值补齐
func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, `
wordlib:
  dir: "data/wordlib"
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "/onebot/v11/ws", cfg.Server.Path)
	assert.Equal(t, "127.0.0.1", cfg.API.Host)
	assert.Equal(t, "onebot", cfg.Source.Type)
	assert.Equal(t, 4, cfg.Pipeline.WorkerCount)
	assert.Equal(t, 1000, cfg.Pipeline.BufferSize)
	assert.Equal(t, uint32(0644), cfg.Permissions.FileMode)
	assert.Equal(t, "INFO", cfg.Log.Level)
}

// 测试配置校验
func TestConfigValidate(t *testing.T) {
	// 词库目录是必填项
	path := writeConfigFile(t, `
server:
  port: "8080"
`)
	_, err := LoadConfig(path)
	assert.Error(t, err)

	// 未知的匹配模式
	path = writeConfigFile(t, `
wordlib:
  dir: "data/wordlib"
  default_match_mode: "regex"
`)
	_, err = LoadConfig(path)
	assert.Error(t, err)

	// 未知的消息源类型
	path = writeConfigFile(t, `
wordlib:
  dir: "data/wordlib"
source:
  type: "kafka"
`)
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

// 配置文件不存在或格式非法时报错
func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "不存在.yaml"))
	assert.Error(t, err)

	path := writeConfigFile(t, "wordlib: [非法")
	_, err = LoadConfig(path)
	assert.Error(t, err)
}
