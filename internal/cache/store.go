package cache

import (
	"errors"
	"io"
	"time"
)

// Entry 表示一次缓存命中结果，包含绝对文件路径及文件信息。
type Entry struct {
	Family         string `json:"family"`
	ContentVersion string `json:"content_version"`
	Filename       string `json:"filename"`
	FilePath       string `json:"file_path"`
	SizeBytes      int64  `json:"size_bytes"`
	ModTime        time.Time
}

// ReadResult 组合 Entry 与正文 Reader，便于镜像服务直接将 Body 流式返回。
type ReadResult struct {
	Entry  Entry
	Reader io.ReadSeekCloser
}

// ErrNotFound 表示缓存不存在。
var ErrNotFound = errors.New("cache entry not found")
