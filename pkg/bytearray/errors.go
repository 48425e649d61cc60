package bytearray

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument 所有ByteArray操作共用的参数错误类别
// 构造类型不支持、索引越界、切片步长为0均归为此类，调用方用 errors.Is 判断
var ErrInvalidArgument = errors.New("bytearray: invalid argument")

var (
	// ErrUnsupportedType 构造参数类型不支持
	ErrUnsupportedType = fmt.Errorf("%w: unsupported input type, must be []byte, *bytes.Buffer or string", ErrInvalidArgument)
	// ErrIndexOutOfRange 索引越界
	ErrIndexOutOfRange = fmt.Errorf("%w: index out of range", ErrInvalidArgument)
	// ErrZeroStep 切片步长为0
	ErrZeroStep = fmt.Errorf("%w: slice step cannot be zero", ErrInvalidArgument)
)
