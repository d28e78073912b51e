package library

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingIdentity 调用时没有带上已解析的用户身份
	ErrMissingIdentity = errors.New("user identity is required")
	// ErrConcurrentUpdate 多次重试后仍与并发请求冲突
	ErrConcurrentUpdate = errors.New("membership changed concurrently, please retry")
)

// ValidationError 请求中的歌曲信息缺失或不合法
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// IsValidationError 判断 err 链上是否有 *ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
