package model

import "fmt"

// 错误分类
// 四类错误对一次分析来说都是终止性的，不做自动重试
// （传输类错误可由上层按配置做有限重试）

// ValidationError 参数校验错误
// 请求在修改共享状态之前即被拒绝
type ValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s=%v (%s)", e.Field, e.Value, e.Reason)
}

// AuthError 凭证获取失败
// 本次分析中止，不发起服务区请求
type AuthError struct {
	Authority string
	Cause     error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("auth failed for %s: %v", e.Authority, e.Cause)
	}
	return fmt.Sprintf("auth failed for %s", e.Authority)
}

func (e *AuthError) Unwrap() error { return e.Cause }

// EmptyResultError 服务区计算未返回任何多边形
// 注意：零要素按失败处理，而不是空的成功结果
type EmptyResultError struct {
	Origin Point
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("service area returned no polygons for %.6f,%.6f", e.Origin.Lng(), e.Origin.Lat())
}

// RemoteServiceError 传输或远程服务故障
// 包括 HTTP 错误、响应解析失败、服务端返回的 error 对象
type RemoteServiceError struct {
	StatusCode int
	Code       int
	Message    string
	Cause      error
}

func (e *RemoteServiceError) Error() string {
	switch {
	case e.Cause != nil:
		return fmt.Sprintf("remote service error: %v", e.Cause)
	case e.Code != 0:
		return fmt.Sprintf("remote service error %d: %s", e.Code, e.Message)
	default:
		return fmt.Sprintf("remote service error (http %d): %s", e.StatusCode, e.Message)
	}
}

func (e *RemoteServiceError) Unwrap() error { return e.Cause }
