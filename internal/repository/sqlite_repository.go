package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ByteArrayGo/internal/model"
	"ByteArrayGo/pkg/bytearray"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS buffers (
	name       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at INTEGER NOT NULL
)`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// 性能优化配置
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logrus.Warnf("Failed to apply %s: %v", pragma, err)
		}
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Save 保存缓冲区，同名覆盖
func (r *SQLiteRepository) Save(ctx context.Context, name string, data *bytearray.ByteArray) error {
	if name == "" {
		return model.ErrInvalidParameter("buffer name is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO buffers (name, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, name, data.ToBytes(), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save buffer %s: %w", name, err)
	}
	return nil
}

// Get 获取缓冲区
func (r *SQLiteRepository) Get(ctx context.Context, name string) (*bytearray.ByteArray, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, "SELECT data FROM buffers WHERE name = ?", name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound("buffer not found: " + name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get buffer %s: %w", name, err)
	}
	return bytearray.FromBytes(data), nil
}

// Delete 删除缓冲区
func (r *SQLiteRepository) Delete(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM buffers WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete buffer %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrNotFound("buffer not found: " + name)
	}
	return nil
}

// List 按名称排序返回所有缓冲区
func (r *SQLiteRepository) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT name FROM buffers ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Stats 获取统计信息
func (r *SQLiteRepository) Stats(ctx context.Context) (map[string]interface{}, error) {
	var count int
	var total sql.NullInt64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*), SUM(LENGTH(data)) FROM buffers").Scan(&count, &total)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"driver":      "sqlite",
		"buffers":     count,
		"total_bytes": total.Int64,
	}, nil
}
