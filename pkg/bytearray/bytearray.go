// Package bytearray 提供拥有独立缓冲区的字节数组值类型
package bytearray

import (
	"bytes"
	"fmt"
)

// ByteArray 字节数组
// 内部缓冲区只归当前实例所有，所有构造函数都会拷贝输入，所有访问器都返回拷贝
type ByteArray struct {
	data []byte
}

// FromBytes 从字节序列创建
//
// 传入参数:
//   - b: 源字节，构造后调用方可以随意修改
//
// 返回值:
//   - *ByteArray: 新实例
func FromBytes(b []byte) *ByteArray {
	return &ByteArray{data: cloneBytes(b)}
}

// FromBuffer 从可变缓冲区创建，nil视为空
//
// 传入参数:
//   - buf: 源缓冲区，只读取未读部分，不会消费它
//
// 返回值:
//   - *ByteArray: 新实例
func FromBuffer(buf *bytes.Buffer) *ByteArray {
	if buf == nil {
		return &ByteArray{data: []byte{}}
	}
	return &ByteArray{data: cloneBytes(buf.Bytes())}
}

// FromString 从文本创建，按UTF-8编码存储
func FromString(s string) *ByteArray {
	return &ByteArray{data: []byte(s)}
}

// New 按运行时类型创建，用于JSON、HTTP等边界处
// 仅接受 []byte、*bytes.Buffer、string、*ByteArray，数字等其他类型一律返回 ErrUnsupportedType
//
// 传入参数:
//   - v: 源数据
//
// 返回值:
//   - *ByteArray: 新实例
//   - error: 类型不支持时返回
func New(v any) (*ByteArray, error) {
	switch src := v.(type) {
	case []byte:
		return FromBytes(src), nil
	case *bytes.Buffer:
		return FromBuffer(src), nil
	case string:
		return FromString(src), nil
	case *ByteArray:
		return FromBytes(src.bytes()), nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedType, v)
	}
}

// Len 返回字节数
// 同时满足缓存层的Value接口
func (b *ByteArray) Len() int {
	return len(b.bytes())
}

// Data 返回内容的副本，可直接与原始字节用 bytes.Equal 比较
func (b *ByteArray) Data() []byte {
	return cloneBytes(b.bytes())
}

// ToBytes 返回不可变语义的字节副本
func (b *ByteArray) ToBytes() []byte {
	return cloneBytes(b.bytes())
}

// ToBuffer 返回可变副本，修改它不会影响当前实例
func (b *ByteArray) ToBuffer() *bytes.Buffer {
	return bytes.NewBuffer(cloneBytes(b.bytes()))
}

// Equal 比较内容是否相同
func (b *ByteArray) Equal(other *ByteArray) bool {
	return bytes.Equal(b.bytes(), other.bytes())
}

// Get 获取指定位置的字节，支持负索引（-1为最后一个）
//
// 传入参数:
//   - index: 位置，合法范围 [-Len, Len-1]
//
// 返回值:
//   - byte: 字节值
//   - error: 越界时返回，属于 ErrInvalidArgument
func (b *ByteArray) Get(index int) (byte, error) {
	data := b.bytes()
	i, err := ResolveIndex(index, len(data))
	if err != nil {
		return 0, err
	}
	return data[i], nil
}

// Concat 拼接，返回新实例，两个操作数都不变
func (b *ByteArray) Concat(other *ByteArray) *ByteArray {
	left, right := b.bytes(), other.bytes()
	data := make([]byte, 0, len(left)+len(right))
	data = append(data, left...)
	data = append(data, right...)
	return &ByteArray{data: data}
}

// Append 将other的内容追加到当前实例，返回当前实例便于链式调用
// other可以是当前实例本身
func (b *ByteArray) Append(other *ByteArray) *ByteArray {
	b.data = append(b.data, other.bytes()...)
	return b
}

// Write 实现io.Writer，等价于追加p
func (b *ByteArray) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// bytes 返回内部切片，nil实例视为空
func (b *ByteArray) bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// cloneBytes 拷贝字节，保证实例独占缓冲区
func cloneBytes(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
