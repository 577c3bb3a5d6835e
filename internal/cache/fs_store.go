package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Store 以 CacheRoot 为根目录管理磁盘缓存，整个进程复用一份实例。
// 缓存树由 Store 独占持有，其它组件不得绕过它直接写入。
type Store struct {
	basePath string
}

// NewStore 解析并创建缓存根目录，返回显式的 Store 句柄，
// 测试可以用 t.TempDir 隔离出独立的缓存根。
func NewStore(cacheRoot string) (*Store, error) {
	if cacheRoot == "" {
		return nil, errors.New("cache root required")
	}

	abs, err := filepath.Abs(cacheRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}

	return &Store{basePath: abs}, nil
}

// BasePath 返回缓存根目录的绝对路径。
func (s *Store) BasePath() string {
	return s.basePath
}

// Locate 纯路径计算，不做任何 I/O：
// <CacheRoot>/<family>/<content_version>/<filename>。
// 三段标识都不允许为空或逃逸出缓存根。
func (s *Store) Locate(family, contentVersion, filename string) (string, error) {
	for _, part := range []struct{ name, value string }{
		{"family", family},
		{"content_version", contentVersion},
		{"filename", filename},
	} {
		if strings.TrimSpace(part.value) == "" {
			return "", fmt.Errorf("%s required", part.name)
		}
	}

	filePath := filepath.Join(s.basePath, family, contentVersion, filename)
	if !strings.HasPrefix(filePath, s.basePath+string(filepath.Separator)) {
		return "", errors.New("invalid cache path")
	}
	return filePath, nil
}

// EnsureDir 为目标路径创建所有缺失的父级目录，可重复调用。
func (s *Store) EnsureDir(target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	return nil
}

// Install 将完整校验过的临时文件原子地移入最终位置，覆盖旧文件。
// rename 的原子性保证并发读者只会看到旧的或新的完整文件。
func (s *Store) Install(tempPath, finalPath string) error {
	if err := s.EnsureDir(finalPath); err != nil {
		return err
	}
	if err := os.Rename(tempPath, finalPath); err != nil {
		return fmt.Errorf("install cache entry: %w", err)
	}
	return nil
}

// Invalidate 删除校验失败的缓存文件；文件已不存在时静默成功。
func (s *Store) Invalidate(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Open 返回一个可流式读取的缓存条目，供镜像服务使用。
// 不存在（或被目录占位）时返回 ErrNotFound。
func (s *Store) Open(family, contentVersion, filename string) (*ReadResult, error) {
	filePath, err := s.Locate(family, contentVersion, filename)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, ErrNotFound
	}

	f, err := os.Open(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &ReadResult{
		Entry: Entry{
			Family:         family,
			ContentVersion: contentVersion,
			Filename:       filename,
			FilePath:       filePath,
			SizeBytes:      info.Size(),
			ModTime:        info.ModTime(),
		},
		Reader: f,
	}, nil
}
