package lru

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testValue string

func (v testValue) Len() int {
	return len(v)
}

func TestGetAndAdd(t *testing.T) {
	t.Parallel()

	c := NewCache(0, 0, nil)
	c.Add("k1", testValue("1234"))

	v, ok := c.Get("k1")
	require.True(t, ok)
	assert.Equal(t, testValue("1234"), v)

	_, ok = c.Get("k2")
	assert.False(t, ok)
	assert.Equal(t, int64(len("k1")+4), c.Bytes())
}

func TestUpdateAdjustsSize(t *testing.T) {
	t.Parallel()

	c := NewCache(0, 0, nil)
	c.Add("k", testValue("ab"))
	c.Add("k", testValue("abcdef"))

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, int64(1+6), c.Bytes())
}

func TestRemoveOldest(t *testing.T) {
	t.Parallel()

	var evicted []string
	c := NewCache(int64(len("k1k2")+len("v1v2")), 0, func(key string, _ Value) {
		evicted = append(evicted, key)
	})
	c.Add("k1", testValue("v1"))
	c.Add("k2", testValue("v2"))

	// 访问k1使k2成为最旧
	_, ok := c.Get("k1")
	require.True(t, ok)

	c.Add("k3", testValue("v3"))

	_, ok = c.Get("k2")
	assert.False(t, ok)
	assert.Equal(t, []string{"k2"}, evicted)
	assert.Equal(t, 2, c.Len())
}

func TestOversizedValueIsEvicted(t *testing.T) {
	t.Parallel()

	c := NewCache(4, 0, nil)
	c.Add("k", testValue("too large"))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Bytes())
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()

	c := NewCache(0, 0, nil)
	c.Add("a", testValue("1"))
	c.Add("b", testValue("2"))

	assert.True(t, c.Remove("a"))
	assert.False(t, c.Remove("a"))
	assert.Equal(t, []string{"b"}, c.Keys())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Bytes())
}

func TestExpiredEntriesAreHidden(t *testing.T) {
	t.Parallel()

	c := NewCache(0, time.Hour, nil)
	c.AddEntry(&Entry{Key: "old", Value: testValue("x"), CreateAt: time.Now().Add(-2 * time.Hour).Unix(), ExpireTime: 3600})
	c.Add("fresh", testValue("y"))

	_, ok := c.Get("old")
	assert.False(t, ok)
	assert.Equal(t, []string{"fresh"}, c.Keys())
}

func TestGetAllOrder(t *testing.T) {
	t.Parallel()

	c := NewCache(0, 0, nil)
	c.Add("a", testValue("1"))
	c.Add("b", testValue("2"))
	c.Add("c", testValue("3"))
	c.Get("a")

	assert.Equal(t, []string{"a", "c", "b"}, c.Keys())
	for _, entry := range c.GetAll() {
		assert.Equal(t, int64(0), entry.ExpireTime)
	}
}
