package repository

import (
	"context"

	"ByteArrayGo/pkg/bytearray"
)

// Repository 缓冲区存储接口
// Save和Get都会拷贝数据，调用方拿到的ByteArray与存储内容互不影响
type Repository interface {
	Save(ctx context.Context, name string, data *bytearray.ByteArray) error
	Get(ctx context.Context, name string) (*bytearray.ByteArray, error)
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (map[string]interface{}, error)
	Close() error
}
