package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"ByteArrayGo/internal/repository"
	"ByteArrayGo/pkg/bytearray"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

var (
	dbPath   = flag.String("db", "./data/buffers.db", "SQLite数据库文件路径")
	dataDir  = flag.String("dir", "./data/import", "待导入文件目录")
	maxFiles = flag.Int("max", 0, "最大导入文件数（0=全部）")
)

func main() {
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	logrus.Info("===========================================")
	logrus.Info("  ByteArray 缓冲区导入工具")
	logrus.Info("===========================================")
	logrus.Infof("Database: %s", *dbPath)
	logrus.Infof("Directory: %s", *dataDir)

	repo, err := repository.NewSQLiteRepository(*dbPath)
	if err != nil {
		logrus.Fatalf("数据库初始化失败: %v", err)
	}
	defer repo.Close()

	startTime := time.Now()
	count, size, err := importDir(context.Background(), repo, *dataDir, *maxFiles)
	if err != nil {
		logrus.Fatalf("导入失败: %v", err)
	}

	elapsed := time.Since(startTime)
	logrus.Infof("总文件数: %d, 总字节数: %d", count, size)
	logrus.Infof("总耗时: %s", elapsed)
}

// findFiles 列出目录下的普通文件，按文件名排序
func findFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// importDir 把目录下每个文件存为同名缓冲区，返回导入文件数和字节数
// max<=0 表示不限制
func importDir(ctx context.Context, repo repository.Repository, dir string, max int) (int, int64, error) {
	files, err := findFiles(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("查找文件失败: %w", err)
	}
	if len(files) == 0 {
		return 0, 0, fmt.Errorf("目录 %s 下没有文件", dir)
	}
	if max > 0 && len(files) > max {
		logrus.Warnf("已达到最大文件数限制: %d", max)
		files = files[:max]
	}

	var total int64
	for i, name := range files {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return i, total, fmt.Errorf("读取 %s 失败: %w", name, err)
		}

		ba := bytearray.FromBytes(data)
		if err := repo.Save(ctx, name, ba); err != nil {
			return i, total, fmt.Errorf("保存 %s 失败: %w", name, err)
		}

		total += int64(ba.Len())
		logrus.Infof("[%d/%d] 导入: %s (%d bytes)", i+1, len(files), name, ba.Len())
	}

	return len(files), total, nil
}
