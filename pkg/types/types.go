package types

import (
	"errors"
	"fmt"
)

// ErrorKind 错误分类
type ErrorKind int

const (
	// Transient 网络、超时等可在下一轮重试的错误
	Transient ErrorKind = iota + 1
	// DataShape 数据缺失或格式异常
	DataShape
	// Fatal 无法继续运行
	Fatal
)

func (k ErrorKind) String() string {
	switch k {
	case Transient:
		return "transient"
	case DataShape:
		return "data_shape"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error 带分类的错误
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError 创建分类错误
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf 使用格式化信息创建分类错误
func Errorf(kind ErrorKind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf 提取错误分类，非分类错误返回0
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsTransient(err error) bool { return KindOf(err) == Transient }
func IsDataShape(err error) bool { return KindOf(err) == DataShape }
func IsFatal(err error) bool     { return KindOf(err) == Fatal }
