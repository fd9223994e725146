package httpapi

// Result 与前端数据客户端约定保持一致
// - success: 是否成功
// - data: 单个对象或集合
// - message: 错误信息（成功时省略）
type Result[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func Ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func Fail(message string) Result[any] {
	return Result[any]{Success: false, Message: message}
}
