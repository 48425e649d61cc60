package model

import (
	"fmt"
	"strconv"
	"strings"

	"ByteArrayGo/pkg/bytearray"
	"ByteArrayGo/pkg/json"
)

// 数据来源类型
const (
	KindBytes     = "bytes"     // base64编码的字节
	KindByteArray = "bytearray" // base64编码，按可变缓冲区构造
	KindText      = "text"      // UTF-8文本
)

// OptionalIndex 可缺省的整数，支持 null、数字和数字字符串
type OptionalIndex struct {
	Value int
	Valid bool
}

// UnmarshalJSON 支持以下几种形式：
// - null 或 ""（缺省）
// - 数字（如 1, -1）
// - 字符串数字（"1", "-1"）
func (o *OptionalIndex) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*o = OptionalIndex{}
		return nil
	}

	// 先尝试数字
	var num int
	if err := json.Unmarshal(b, &num); err == nil {
		*o = OptionalIndex{Value: num, Valid: true}
		return nil
	}

	// 尝试字符串
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return fmt.Errorf("%w: index must be an integer, got %s", bytearray.ErrInvalidArgument, s)
	}
	str = strings.TrimSpace(str)
	if str == "" {
		*o = OptionalIndex{}
		return nil
	}
	v, err := strconv.Atoi(str)
	if err != nil {
		return fmt.Errorf("%w: index must be an integer, got %q", bytearray.ErrInvalidArgument, str)
	}
	*o = OptionalIndex{Value: v, Valid: true}
	return nil
}

// MarshalJSON 缺省时输出null
func (o OptionalIndex) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(o.Value)), nil
}

// Ptr 转换为切片参数
func (o OptionalIndex) Ptr() *int {
	if !o.Valid {
		return nil
	}
	return bytearray.Int(o.Value)
}

// Index 构造有值的OptionalIndex
func Index(v int) OptionalIndex {
	return OptionalIndex{Value: v, Valid: true}
}

// Source 缓冲区数据来源
type Source struct {
	Kind  string          `json:"kind"`  // bytes/bytearray/text
	Value json.RawMessage `json:"value"` // text为JSON字符串，其余为base64字符串
}

// Build 按类型构造ByteArray，数字等非法值返回参数错误
func (s *Source) Build() (*bytearray.ByteArray, error) {
	switch s.Kind {
	case KindText:
		var v interface{}
		if err := json.Unmarshal(s.Value, &v); err != nil {
			return nil, fmt.Errorf("%w: invalid text value: %v", bytearray.ErrInvalidArgument, err)
		}
		return bytearray.New(v)
	case KindBytes, KindByteArray:
		var raw bytearray.ByteArray
		if err := raw.UnmarshalJSON(s.Value); err != nil {
			return nil, err
		}
		if s.Kind == KindByteArray {
			return bytearray.New(raw.ToBuffer())
		}
		return &raw, nil
	default:
		return nil, fmt.Errorf("%w: unknown source kind %q", bytearray.ErrInvalidArgument, s.Kind)
	}
}

// CreateRequest 创建缓冲区请求
type CreateRequest struct {
	Name   string `json:"name"`
	Source Source `json:"source"`
}

// SliceRequest 切片请求，Target非空时结果另存为新缓冲区
type SliceRequest struct {
	Start  OptionalIndex `json:"start"`
	Stop   OptionalIndex `json:"stop"`
	Step   OptionalIndex `json:"step"`
	Target string        `json:"target"`
}

// ConcatRequest 拼接请求，结果为 当前缓冲区 + Other
type ConcatRequest struct {
	Other  string `json:"other"`
	Target string `json:"target"`
}

// AppendRequest 追加请求
type AppendRequest struct {
	Other string `json:"other"`
}

// BufferResponse 缓冲区内容
type BufferResponse struct {
	Name   string               `json:"name"`
	Length int                  `json:"length"`
	Data   *bytearray.ByteArray `json:"data"`
	Repr   string               `json:"repr"`
}

// NewBufferResponse 创建缓冲区响应
func NewBufferResponse(name string, ba *bytearray.ByteArray) *BufferResponse {
	return &BufferResponse{
		Name:   name,
		Length: ba.Len(),
		Data:   ba,
		Repr:   ba.Repr(),
	}
}

// IndexResponse 索引访问结果
type IndexResponse struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
	Value byte   `json:"value"`
}

// RenderResponse 文本渲染结果
type RenderResponse struct {
	Name  string `json:"name"`
	Repr  string `json:"repr"`
	ASCII string `json:"ascii"`
}

// ListResponse 缓冲区列表
type ListResponse struct {
	Names []string `json:"names"`
	Count int      `json:"count"`
}
