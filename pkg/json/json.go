package json

import (
	"io"

	jsoniter "github.com/json-iterator/go"
)

// api 与标准库行为兼容的jsoniter配置
var api = jsoniter.ConfigCompatibleWithStandardLibrary

// RawMessage 原始JSON片段
type RawMessage = jsoniter.RawMessage

// Marshal 序列化
func Marshal(v interface{}) ([]byte, error) {
	return api.Marshal(v)
}

// MarshalIndent 带缩进的序列化
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

// Unmarshal 反序列化
func Unmarshal(data []byte, v interface{}) error {
	return api.Unmarshal(data, v)
}

// NewDecoder 创建流式解码器
func NewDecoder(r io.Reader) *jsoniter.Decoder {
	return api.NewDecoder(r)
}

// Valid 检查是否为合法JSON
func Valid(data []byte) bool {
	return api.Valid(data)
}
