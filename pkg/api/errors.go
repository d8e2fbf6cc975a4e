package api

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// 错误代码常量
const (
	// 通用错误
	ErrCodeInternalServerError = http.StatusInternalServerError // 服务器内部错误
	ErrCodeBadRequest          = http.StatusBadRequest          // 请求参数错误
	ErrCodeNotFound            = http.StatusNotFound            // 资源不存在

	// 词库相关错误
	ErrCodeFileNotFound  = http.StatusNotFound   // 词库文件不存在
	ErrCodeInvalidName   = http.StatusBadRequest // 词库文件名非法
	ErrCodeParseFail     = http.StatusBadRequest // 词库文本解析失败
	ErrCodeReloadFail    = http.StatusBadRequest // 词库重载失败
	ErrCodeEmptyBody     = http.StatusBadRequest // 请求体为空
	ErrCodeWriteFileFail = http.StatusInternalServerError
)

// WordlibError 自定义词库错误类型
type WordlibError struct {
	Code    int         // HTTP 状态码
	Message string      // 错误消息
	Err     error       // 原始错误
	Data    interface{} // 附加数据（可选）
}

// Error 实现 error 接口
func (e *WordlibError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// NewWordlibError 创建新的词库错误
func NewWordlibError(code int, message string, err error) *WordlibError {
	return &WordlibError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewFileNotFoundError 创建词库文件不存在错误
func NewFileNotFoundError(name string) *WordlibError {
	return &WordlibError{
		Code:    ErrCodeFileNotFound,
		Message: fmt.Sprintf("词库文件 %s 不存在", name),
	}
}

// NewInvalidNameError 创建词库文件名非法错误
func NewInvalidNameError(name string) *WordlibError {
	return &WordlibError{
		Code:    ErrCodeInvalidName,
		Message: fmt.Sprintf("词库文件名非法: %s", name),
	}
}

// NewParseFailError 创建词库解析失败错误，Err里带着词条和行号定位
func NewParseFailError(err error) *WordlibError {
	return &WordlibError{
		Code:    ErrCodeParseFail,
		Message: "词库文本解析失败",
		Err:     err,
	}
}

// NewReloadFailError 创建词库重载失败错误，旧词库保持生效
func NewReloadFailError(err error) *WordlibError {
	return &WordlibError{
		Code:    ErrCodeReloadFail,
		Message: "词库重载失败，当前词库保持生效",
		Err:     err,
	}
}

// NewEmptyBodyError 创建请求体为空错误
func NewEmptyBodyError() *WordlibError {
	return &WordlibError{
		Code:    ErrCodeEmptyBody,
		Message: "请求体不能为空",
	}
}

// NewInternalServerError 创建服务器内部错误
func NewInternalServerError(err error) *WordlibError {
	return &WordlibError{
		Code:    ErrCodeInternalServerError,
		Message: "服务器内部错误",
		Err:     err,
	}
}

// HandleError 统一错误处理函数
func HandleError(c echo.Context, err error) error {
	// 记录错误日志
	logrus.WithFields(logrus.Fields{
		"error":      err.Error(),
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		"path":       c.Request().URL.Path,
		"method":     c.Request().Method,
	}).Error("API 错误")

	// 处理自定义错误
	if wlErr, ok := err.(*WordlibError); ok {
		resp := Response{
			Code:    wlErr.Code,
			Message: wlErr.Message,
		}

		// 解析/重载类错误把定位信息原样返回给调用方展示
		if wlErr.Err != nil {
			resp.Data = map[string]string{
				"error_detail": wlErr.Err.Error(),
			}
		}

		return c.JSON(wlErr.Code, resp)
	}

	// 处理未知错误
	return c.JSON(http.StatusInternalServerError, Response{
		Code:    http.StatusInternalServerError,
		Message: "服务器内部错误",
	})
}
