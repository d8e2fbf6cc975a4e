package api

import (
	"context"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/lchliebedich/wordlib_bot/pkg/config"
)

// Server HTTP 服务器
type Server struct {
	echo *echo.Echo
	addr string
}

// NewServer 创建一个新的 HTTP 服务器
func NewServer(cfg *config.Config) *Server {
	e := echo.New()
	e.HideBanner = true

	// 构建地址
	addr := fmt.Sprintf("%s:%s", cfg.API.Host, cfg.API.Port)

	return &Server{
		echo: e,
		addr: addr,
	}
}

// Start 启动 HTTP 服务器
func (s *Server) Start() error {
	return s.echo.Start(s.addr)
}

// Stop 停止 HTTP 服务器
func (s *Server) Stop(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// GetEcho 获取Echo实例
func (s *Server) GetEcho() *echo.Echo {
	return s.echo
}

// RegisterWordlibService 注册词库管理服务
func (s *Server) RegisterWordlibService(ws *WordlibService) {
	// 注册路由
	s.echo.GET("/wordlib/files", ws.GetFiles)                  // 列出词库文件
	s.echo.GET("/wordlib/files/:name", ws.GetFile)             // 获取词库文件内容
	s.echo.PUT("/wordlib/files/:name", ws.PutFile)             // 写入词库文件并重载
	s.echo.POST("/wordlib/files/:name/delete", ws.DeleteFile)  // 删除词库文件并重载
	s.echo.GET("/wordlib/rules", ws.GetRules)                  // 列出当前快照中的词条
	s.echo.POST("/wordlib/reload", ws.Reload)                  // 重载词库
	s.echo.POST("/wordlib/validate", ws.Validate)              // 校验词库文本
	s.echo.GET("/stats", ws.GetStats)                          // 运行统计
}
