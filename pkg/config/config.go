package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"` // OneBot反向WebSocket监听地址
		Port string `yaml:"port"`
		Path string `yaml:"path"` // WebSocket路径，默认 /onebot/v11/ws
	} `yaml:"server"`

	API struct {
		Host string `yaml:"host"` // 管理接口监听地址
		Port string `yaml:"port"`
	} `yaml:"api"`

	Pipeline struct {
		WorkerCount int `yaml:"worker_count"`
		BufferSize  int `yaml:"buffer_size"`
	} `yaml:"pipeline"`

	Wordlib struct {
		Dir              string `yaml:"dir"`                // 词库目录，目录下所有.txt按文件名序装载
		DefaultMatchMode string `yaml:"default_match_mode"` // exact/fuzzy
		CaseSensitive    bool   `yaml:"case_sensitive"`
		AutoReload       bool   `yaml:"auto_reload"`      // 监控词库目录并自动重载
		MaxReplyLength   int    `yaml:"max_reply_length"` // 回复长度上限，0不限制
	} `yaml:"wordlib"`

	Source struct {
		Type     string `yaml:"type"`     // onebot/file
		Filename string `yaml:"filename"` // type为file时的消息回放文件
	} `yaml:"source"`

	Log struct {
		Level      string `yaml:"level"`
		Dir        string `yaml:"dir"`
		Filename   string `yaml:"filename"`
		MaxAge     int    `yaml:"max_age"`
		RotateTime int    `yaml:"rotate_time"`
	} `yaml:"log"`

	Permissions struct {
		FileMode uint32 `yaml:"file_mode"`
	} `yaml:"permissions"`
}

func (c *Config) Validate() error {
	if c.Wordlib.Dir == "" {
		return fmt.Errorf("wordlib dir is required")
	}
	switch c.Wordlib.DefaultMatchMode {
	case "", "exact", "fuzzy":
	default:
		return fmt.Errorf("unknown default_match_mode: %s", c.Wordlib.DefaultMatchMode)
	}
	switch c.Source.Type {
	case "", "onebot", "file":
	default:
		return fmt.Errorf("unknown source type: %s", c.Source.Type)
	}
	if c.Pipeline.WorkerCount <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	if c.Pipeline.BufferSize <= 0 {
		return fmt.Errorf("buffer size must be positive")
	}
	return nil
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Path == "" {
		c.Server.Path = "/onebot/v11/ws"
	}
	if c.API.Host == "" {
		c.API.Host = "127.0.0.1"
	}
	if c.API.Port == "" {
		c.API.Port = "8081"
	}
	if c.Source.Type == "" {
		c.Source.Type = "onebot"
	}
	if c.Pipeline.WorkerCount == 0 {
		c.Pipeline.WorkerCount = 4
	}
	if c.Pipeline.BufferSize == 0 {
		c.Pipeline.BufferSize = 1000
	}
	if c.Log.Level == "" {
		c.Log.Level = "INFO"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = "logs"
	}
	if c.Log.Filename == "" {
		c.Log.Filename = "wordlib_bot.log"
	}
	if c.Log.MaxAge == 0 {
		c.Log.MaxAge = 24
	}
	if c.Log.RotateTime == 0 {
		c.Log.RotateTime = 1
	}
	if c.Permissions.FileMode == 0 {
		c.Permissions.FileMode = 0644
	}
}
