package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
)

// ErrNoMirrors 表示条目没有任何镜像地址，直接失败且不产生网络请求。
var ErrNoMirrors = errors.New("no mirror urls available")

// copyBufSize 与缓存写入保持一致的固定分块，避免大文件占用过多内存。
const copyBufSize = 1 << 20

// Downloader 按声明顺序逐个尝试镜像地址，把响应正文流式落到临时文件。
// 镜像之间严格串行，不做并发竞速；同一个地址绝不重试。
type Downloader struct {
	client *http.Client
	logger *logrus.Logger
}

// NewDownloader 构造共享 http.Client 与 logger 的下载器。
func NewDownloader(client *http.Client, logger *logrus.Logger) *Downloader {
	return &Downloader{
		client: client,
		logger: logger,
	}
}

// Fetch 依次尝试 urls，把首个通过 validate 的完整响应写入 destPath。
// validate 可为 nil；其返回的错误与网络失败同等对待：丢弃本次内容再试下一个。
// 全部镜像失败时返回最后一个错误。
func (d *Downloader) Fetch(ctx context.Context, urls []string, destPath string, validate func(string) error) error {
	if len(urls) == 0 {
		return ErrNoMirrors
	}

	var lastErr error
	for i, rawURL := range urls {
		err := d.attempt(ctx, rawURL, destPath)
		if err == nil && validate != nil {
			if err = validate(destPath); err != nil {
				d.discard(destPath)
			}
		}
		if err == nil {
			d.logger.WithFields(logrus.Fields{
				"action":  "mirror_fetch",
				"url":     rawURL,
				"attempt": i + 1,
			}).Info("mirror_fetch_ok")
			return nil
		}

		lastErr = err
		d.logger.WithFields(logrus.Fields{
			"action":  "mirror_fetch",
			"url":     rawURL,
			"attempt": i + 1,
			"error":   err.Error(),
		}).Warn("mirror_fetch_failed")
	}
	return lastErr
}

// attempt 执行单个镜像的完整下载；任何失败都会清掉 destPath。
func (d *Downloader) attempt(ctx context.Context, rawURL, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.discard(destPath)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		d.discard(destPath)
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, rawURL)
	}

	f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}

	buf := make([]byte, copyBufSize)
	_, copyErr := io.CopyBuffer(f, resp.Body, buf)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		d.discard(destPath)
		return fmt.Errorf("stream body: %w", copyErr)
	}
	return nil
}

func (d *Downloader) discard(destPath string) {
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		d.logger.WithFields(logrus.Fields{
			"action": "mirror_fetch",
			"path":   destPath,
			"error":  err.Error(),
		}).Warn("discard_partial_failed")
	}
}
