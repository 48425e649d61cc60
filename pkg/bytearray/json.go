package bytearray

import (
	"bytes"
	"fmt"

	"ByteArrayGo/pkg/json"
)

// MarshalJSON 序列化为base64字符串，与标准库对[]byte的编码一致
func (b *ByteArray) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	if b.data == nil {
		return []byte(`""`), nil
	}
	return json.Marshal(b.data)
}

// UnmarshalJSON 从base64字符串或null反序列化，其他JSON类型返回 ErrUnsupportedType
func (b *ByteArray) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		b.data = []byte{}
		return nil
	}
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return fmt.Errorf("%w: json value %s", ErrUnsupportedType, trimmed)
	}

	var raw []byte
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	b.data = raw
	if b.data == nil {
		b.data = []byte{}
	}
	return nil
}
