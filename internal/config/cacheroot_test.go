package config

import (
	"path/filepath"
	"testing"
)

func TestResolveCacheRootPrecedence(t *testing.T) {
	t.Setenv(CacheRootEnv, "/env/cache")
	t.Setenv("XDG_CACHE_HOME", "/xdg")

	if got := ResolveCacheRoot("/flag/cache", "/cfg/cache"); got != "/flag/cache" {
		t.Fatalf("CLI 标志应最优先，得到 %s", got)
	}
	if got := ResolveCacheRoot("", "/cfg/cache"); got != "/cfg/cache" {
		t.Fatalf("配置文件应高于环境变量，得到 %s", got)
	}
	if got := ResolveCacheRoot("", ""); got != "/env/cache" {
		t.Fatalf("环境变量应高于 XDG 默认值，得到 %s", got)
	}
}

func TestDefaultCacheRootFollowsXDG(t *testing.T) {
	t.Setenv(CacheRootEnv, "")
	t.Setenv("XDG_CACHE_HOME", "/xdg")

	expected := filepath.Join("/xdg", "codebook-hub", "codebooks")
	if got := DefaultCacheRoot(); got != expected {
		t.Fatalf("应遵循 XDG_CACHE_HOME，得到 %s", got)
	}
	if got := ResolveCacheRoot("", ""); got != expected {
		t.Fatalf("空环境变量应回退到 XDG 默认值，得到 %s", got)
	}
}
