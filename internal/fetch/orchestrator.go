package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/codebook-hub/codebook-hub/internal/cache"
	"github.com/codebook-hub/codebook-hub/internal/integrity"
	"github.com/codebook-hub/codebook-hub/internal/logging"
	"github.com/codebook-hub/codebook-hub/internal/manifest"
	"github.com/codebook-hub/codebook-hub/internal/mirror"
)

// ErrDigestMismatch 表示下载内容与 manifest 声明的 SHA-256 不一致。
// 摘要不符的制品绝不落入缓存，也绝不交给调用方。
var ErrDigestMismatch = errors.New("sha256 digest mismatch")

// Outcome 标记一次抓取的最终形态，日志与 CLI 输出共用。
type Outcome string

const (
	// OutcomeCacheHit 缓存命中且摘要校验通过，无任何网络活动。
	OutcomeCacheHit Outcome = "cache_hit"
	// OutcomeDownloaded 经镜像下载、校验并安装进缓存。
	OutcomeDownloaded Outcome = "downloaded"
	// OutcomeSoftMissing 档位/文件名/镜像缺失，默认按"尽力而为"处理。
	OutcomeSoftMissing Outcome = "soft_missing"
)

// Options 汇总一次抓取操作的全部输入，显式传递而非散落在全局常量里。
type Options struct {
	ManifestPath string
	Tier         manifest.Tier
	OutputPath   string
	Require      bool
}

// Result 描述抓取结果：最终解析出的路径（或缺失原因）与结果形态。
type Result struct {
	Path    string
	Outcome Outcome
	Reason  string
}

// Orchestrator 把 manifest 解析、缓存检查、镜像下载与摘要校验
// 组合成端到端抓取协议。
type Orchestrator struct {
	store      *cache.Store
	downloader *mirror.Downloader
	logger     *logrus.Logger
}

// NewOrchestrator 构造共享 store/downloader/logger 的抓取编排器。
func NewOrchestrator(store *cache.Store, downloader *mirror.Downloader, logger *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		store:      store,
		downloader: downloader,
		logger:     logger,
	}
}

// Fetch 执行完整抓取协议。软缺失条件默认产出 OutcomeSoftMissing 且 err 为 nil；
// opts.Require 为 true 时升级为错误。manifest 结构性错误、摘要不符、
// 镜像全部失败与缓存写入失败始终是硬错误。
func (o *Orchestrator) Fetch(ctx context.Context, opts Options) (Result, error) {
	opID := uuid.NewString()

	m, err := manifest.Load(opts.ManifestPath)
	if err != nil {
		return Result{}, err
	}

	entry, err := m.Resolve(opts.Tier)
	if err != nil {
		if errors.Is(err, manifest.ErrTierNotFound) {
			return o.softMissing(opts, fmt.Sprintf("tier %s not present in manifest", opts.Tier))
		}
		return Result{}, err
	}

	filename := entry.Artifact.Filename
	if filename == "" {
		return o.softMissing(opts, fmt.Sprintf("tier %s missing artifact filename", opts.Tier))
	}
	expected := entry.Artifact.NormalizedSHA256()

	cachePath, err := o.store.Locate(m.Family, m.ContentVersion, filename)
	if err != nil {
		return Result{}, fmt.Errorf("locate cache entry: %w", err)
	}

	fields := logging.FetchFields(opID, m.Family, m.ContentVersion, string(opts.Tier), false)
	fields["action"] = "fetch"

	if hit, err := o.checkCached(cachePath, expected, fields); err != nil {
		return Result{}, err
	} else if hit {
		return o.finish(Result{Path: cachePath, Outcome: OutcomeCacheHit}, cachePath, opts.OutputPath)
	}

	if len(entry.Artifact.URLs) == 0 {
		return o.softMissing(opts, fmt.Sprintf("no urls in manifest for tier %s; cannot fetch", opts.Tier))
	}

	if err := o.store.EnsureDir(cachePath); err != nil {
		return Result{}, err
	}

	// 临时目录建在目标目录旁，保证 rename 落在同一文件系统上。
	// 本次操作的临时文件由编排器独占持有，所有退出路径都会清理。
	tmpDir, err := os.MkdirTemp(filepath.Dir(cachePath), ".fetch-*")
	if err != nil {
		return Result{}, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	tmpPath := filepath.Join(tmpDir, filename+".tmp")

	validate := func(path string) error {
		ok, err := integrity.Verify(path, expected)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: expected %s", ErrDigestMismatch, expected)
		}
		return nil
	}

	if err := o.downloader.Fetch(ctx, entry.Artifact.URLs, tmpPath, validate); err != nil {
		fields["error"] = err.Error()
		o.logger.WithFields(fields).Error("fetch_failed")
		return Result{}, fmt.Errorf("fetch tier %s: %w", opts.Tier, err)
	}

	if err := o.store.Install(tmpPath, cachePath); err != nil {
		return Result{}, err
	}

	o.logger.WithFields(fields).Info("fetch_installed")
	return o.finish(Result{Path: cachePath, Outcome: OutcomeDownloaded}, cachePath, opts.OutputPath)
}

// checkCached 实现缓存命中快路径：文件存在、manifest 声明了摘要且校验通过。
// 摘要不符的旧文件立即失效删除，绝不复用。未声明摘要时不走快路径（无从信任）。
func (o *Orchestrator) checkCached(cachePath, expected string, fields logrus.Fields) (bool, error) {
	if expected == "" {
		return false, nil
	}
	if _, err := os.Stat(cachePath); err != nil {
		return false, nil
	}

	ok, err := integrity.Verify(cachePath, expected)
	if err != nil {
		return false, err
	}
	if ok {
		hitFields := logrus.Fields{}
		for k, v := range fields {
			hitFields[k] = v
		}
		hitFields["cache_hit"] = true
		o.logger.WithFields(hitFields).Info("fetch_cache_hit")
		return true, nil
	}

	o.logger.WithFields(fields).Warn("fetch_cache_invalidated")
	if err := o.store.Invalidate(cachePath); err != nil {
		return false, fmt.Errorf("invalidate stale cache entry: %w", err)
	}
	return false, nil
}

// finish 在需要时把缓存文件全量复制到调用方指定的输出路径。
func (o *Orchestrator) finish(res Result, cachePath, outputPath string) (Result, error) {
	if outputPath == "" {
		return res, nil
	}
	if err := copyFile(cachePath, outputPath); err != nil {
		return Result{}, fmt.Errorf("copy to output path: %w", err)
	}
	res.Path = outputPath
	return res, nil
}

// softMissing 产出软缺失结果；--require 模式把它升级为硬错误。
func (o *Orchestrator) softMissing(opts Options, reason string) (Result, error) {
	if opts.Require {
		return Result{}, errors.New(reason)
	}
	o.logger.WithFields(logrus.Fields{
		"action": "fetch",
		"tier":   string(opts.Tier),
		"reason": reason,
	}).Info("fetch_soft_missing")
	return Result{Outcome: OutcomeSoftMissing, Reason: reason}, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	_, copyErr := io.Copy(out, in)
	closeErr := out.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	return copyErr
}
