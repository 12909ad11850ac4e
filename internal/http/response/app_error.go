package response

// AppError 统一错误包装
// Expose 为 true 时把底层错误原文返回给调用方（库存不足、快递拒单等）
type AppError struct {
	Code    int
	Message string
	Err     error
	Expose  bool
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// PublicMessage 对外展示的消息
func (e *AppError) PublicMessage() string {
	if e.Expose && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ExposeError 包装错误并对外展示原因
func ExposeError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Expose:  true,
	}
}
