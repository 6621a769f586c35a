// Package errs 定义渲染流水线中调用方可见的错误类型。
package errs

import (
	"errors"
	"fmt"
)

// Kind 区分错误的处理策略：降级、立即失败或向上抛出。
type Kind int

const (
	// Other 表示未分类错误。
	Other Kind = iota
	// ResourceUnavailable 表示首选字体或图层缺失，调用方应降级而不是失败。
	ResourceUnavailable
	// InvalidDimension 表示非正的宽高或小于 1 的列宽预算，立即失败。
	InvalidDimension
	// ExternalServiceFailure 表示地理编码或瓦片服务失败，由编排层处理。
	ExternalServiceFailure
	// EncodingFailure 表示输出路径或格式不受支持、编码失败。
	EncodingFailure
)

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrResourceUnavailable    = errors.New("resource unavailable")
	ErrInvalidDimension       = errors.New("invalid dimension")
	ErrExternalServiceFailure = errors.New("external service failure")
	ErrEncodingFailure        = errors.New("encoding failure")
)

func (k Kind) String() string {
	switch k {
	case ResourceUnavailable:
		return "ResourceUnavailable"
	case InvalidDimension:
		return "InvalidDimension"
	case ExternalServiceFailure:
		return "ExternalServiceFailure"
	case EncodingFailure:
		return "EncodingFailure"
	default:
		return "Other"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case ResourceUnavailable:
		return ErrResourceUnavailable
	case InvalidDimension:
		return ErrInvalidDimension
	case ExternalServiceFailure:
		return ErrExternalServiceFailure
	case EncodingFailure:
		return ErrEncodingFailure
	default:
		return nil
	}
}

// Error 记录失败的操作、错误种类以及底层原因。
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is 让 errors.Is(err, errs.ErrInvalidDimension) 这类按种类的判断成立。
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// E 构造一个带种类的错误。
func E(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf 是 E 与 fmt.Errorf 的组合。
func Errorf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf 返回错误链上第一个 *Error 的种类，找不到时返回 Other。
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}
