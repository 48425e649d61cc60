package bytearray

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	reprPrefix = "ByteArray('"
	reprSuffix = "')"
)

// Repr 返回 ByteArray('<内容>') 形式的文本
// 合法UTF-8时内容为解码后的文本，否则每个字节按同值码点输出；控制字符原样嵌入，不做转义
func (b *ByteArray) Repr() string {
	data := b.bytes()

	var sb strings.Builder
	sb.Grow(len(reprPrefix) + len(data) + len(reprSuffix))
	sb.WriteString(reprPrefix)
	if utf8.Valid(data) {
		sb.Write(data)
	} else {
		for _, c := range data {
			sb.WriteRune(rune(c))
		}
	}
	sb.WriteString(reprSuffix)
	return sb.String()
}

// String 与Repr相同
func (b *ByteArray) String() string {
	return b.Repr()
}

// ASCII 返回转义后的纯ASCII文本
// 非ASCII字符写成 \u{xxxx}，非法UTF-8字节先解码为U+FFFD
func (b *ByteArray) ASCII() string {
	data := b.bytes()

	var sb strings.Builder
	sb.Grow(len(data))
	for _, r := range string(data) {
		if r < utf8.RuneSelf {
			sb.WriteRune(r)
			continue
		}
		fmt.Fprintf(&sb, "\\u{%04x}", r)
	}
	return sb.String()
}
