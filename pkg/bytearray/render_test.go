package bytearray

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRepr(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ba   *ByteArray
		want string
	}{
		{"printable", FromString("hello"), "ByteArray('hello')"},
		{"control bytes", FromBytes([]byte{0x01, 0x02, 0x03}), "ByteArray('\x01\x02\x03')"},
		{"empty", FromBytes(nil), "ByteArray('')"},
		{"utf8 text", FromString("日本"), "ByteArray('日本')"},
		{"invalid utf8", FromBytes([]byte{'a', 0xff, 0x80}), "ByteArray('aÿ\u0080')"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.ba.Repr())
			assert.Equal(t, tc.want, tc.ba.String())
			assert.Equal(t, tc.want, fmt.Sprint(tc.ba))
		})
	}
}

func TestReprDoesNotEscape(t *testing.T) {
	t.Parallel()

	got := FromBytes([]byte{0x01}).Repr()
	assert.NotContains(t, got, `\x01`)
	assert.Len(t, got, len("ByteArray('')")+1)
}

func TestASCII(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   []byte
		want string
	}{
		{[]byte("hello"), "hello"},
		{[]byte("héllo"), `h\u{00e9}llo`},
		{[]byte("日"), `\u{65e5}`},
		{[]byte("😀"), `\u{1f600}`},
		{[]byte{'a', 0xff}, `a\u{fffd}`},
		{[]byte{0x01}, "\x01"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, FromBytes(tc.in).ASCII(), "%q", tc.in)
	}
}
