package model

import (
	"errors"
	"net/http"
	"testing"

	"ByteArrayGo/pkg/bytearray"
	"ByteArrayGo/pkg/json"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptionalIndexUnmarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want OptionalIndex
	}{
		{`null`, OptionalIndex{}},
		{`3`, Index(3)},
		{`-1`, Index(-1)},
		{`"2"`, Index(2)},
		{`" -4 "`, Index(-4)},
		{`""`, OptionalIndex{}},
	}

	for _, tc := range tests {
		var got OptionalIndex
		require.NoError(t, json.Unmarshal([]byte(tc.in), &got), tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestOptionalIndexUnmarshalInvalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{`"abc"`, `1.5`, `true`} {
		var got OptionalIndex
		err := json.Unmarshal([]byte(in), &got)
		assert.Error(t, err, in)
	}
}

func TestSliceRequestDefaults(t *testing.T) {
	t.Parallel()

	var req SliceRequest
	require.NoError(t, json.Unmarshal([]byte(`{"start": 1, "step": null}`), &req))
	require.NotNil(t, req.Start.Ptr())
	assert.Equal(t, 1, *req.Start.Ptr())
	assert.Nil(t, req.Stop.Ptr())
	assert.Nil(t, req.Step.Ptr())

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":1,"stop":null,"step":null,"target":""}`, string(raw))
}

func TestSourceBuild(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  Source
		want string
	}{
		{"text", Source{Kind: KindText, Value: json.RawMessage(`"hello"`)}, "hello"},
		{"bytes", Source{Kind: KindBytes, Value: json.RawMessage(`"aGVsbG8="`)}, "hello"},
		{"bytearray", Source{Kind: KindByteArray, Value: json.RawMessage(`"aGVsbG8="`)}, "hello"},
		{"empty bytes", Source{Kind: KindBytes, Value: json.RawMessage(`null`)}, ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ba, err := tc.src.Build()
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(ba.Data()))
		})
	}
}

func TestSourceBuildRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	tests := []Source{
		{Kind: KindText, Value: json.RawMessage(`123`)},
		{Kind: KindText, Value: nil},
		{Kind: KindBytes, Value: json.RawMessage(`123`)},
		{Kind: KindByteArray, Value: json.RawMessage(`"not base64!"`)},
		{Kind: "int", Value: json.RawMessage(`"x"`)},
	}

	for _, src := range tests {
		_, err := src.Build()
		assert.ErrorIs(t, err, bytearray.ErrInvalidArgument, "%s %s", src.Kind, src.Value)
	}
}

func TestFromError(t *testing.T) {
	t.Parallel()

	assert.Nil(t, FromError(nil))

	_, err := bytearray.FromString("abc").Get(10)
	assert.Equal(t, http.StatusBadRequest, FromError(err).Code)

	assert.Equal(t, http.StatusNotFound, FromError(ErrNotFound("missing")).Code)
	assert.Equal(t, http.StatusInternalServerError, FromError(errors.New("disk on fire")).Code)

	assert.True(t, IsNotFound(ErrNotFound("x")))
	assert.False(t, IsNotFound(ErrInvalidParameter("x")))
}
