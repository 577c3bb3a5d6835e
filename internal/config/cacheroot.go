package config

import (
	"os"
	"path/filepath"
)

// CacheRootEnv 允许在不传 --cache-root 时通过环境变量覆盖缓存根目录。
const CacheRootEnv = "CODEBOOK_HUB_CACHE"

// ResolveCacheRoot 计算最终生效的缓存根目录，优先级为：
// CLI 标志 > 配置文件 > CODEBOOK_HUB_CACHE > XDG 缓存目录约定。
func ResolveCacheRoot(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if configValue != "" {
		return configValue
	}
	if env := os.Getenv(CacheRootEnv); env != "" {
		return env
	}
	return DefaultCacheRoot()
}

// DefaultCacheRoot 返回按用户缓存目录约定推导的默认路径，
// 即 <缓存主目录>/codebook-hub/codebooks。
func DefaultCacheRoot() string {
	return filepath.Join(cacheHome(), "codebook-hub", "codebooks")
}

// cacheHome 遵循 XDG_CACHE_HOME，缺省退回 ~/.cache。
func cacheHome() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cache"
	}
	return filepath.Join(home, ".cache")
}
