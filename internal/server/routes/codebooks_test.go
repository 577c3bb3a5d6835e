package routes

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/codebook-hub/codebook-hub/internal/cache"
	"github.com/codebook-hub/codebook-hub/internal/server"
)

func TestHealthzRoute(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/-/healthz", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "codebook-hub") {
		t.Fatalf("健康检查应包含版本标识，得到 %s", string(body))
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}

func TestServeCodebookHit(t *testing.T) {
	app, store := newTestApp(t)
	installEntry(t, store, "sbcb", "2026.1", "tiny.bin", "codebook-bytes")

	resp, err := app.Test(httptest.NewRequest("GET", "/codebooks/sbcb/2026.1/tiny.bin", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "codebook-bytes" {
		t.Fatalf("body mismatch: %s", string(body))
	}
	if digest := resp.Header.Get("X-Codebook-Hub-Digest"); !strings.HasPrefix(digest, "sha256:") {
		t.Fatalf("应携带 sha256 摘要头，得到 %q", digest)
	}
}

func TestServeCodebookMiss(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/codebooks/sbcb/2026.1/missing.bin", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "codebook_not_found") {
		t.Fatalf("expected codebook_not_found error, got %s", string(body))
	}
}

func TestServeManifest(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(manifestPath, []byte(`{"family":"sbcb"}`), 0o644); err != nil {
		t.Fatalf("写 manifest 失败: %v", err)
	}

	app, _ := newTestAppWithManifest(t, manifestPath)

	resp, err := app.Test(httptest.NewRequest("GET", "/manifest", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `"sbcb"`) {
		t.Fatalf("manifest body mismatch: %s", string(body))
	}
}

func TestServeManifestMissing(t *testing.T) {
	app, _ := newTestAppWithManifest(t, filepath.Join(t.TempDir(), "missing.json"))

	resp, err := app.Test(httptest.NewRequest("GET", "/manifest", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func newTestApp(t *testing.T) (*fiber.App, *cache.Store) {
	t.Helper()
	return newTestAppWithManifest(t, filepath.Join(t.TempDir(), "manifest.json"))
}

func newTestAppWithManifest(t *testing.T, manifestPath string) (*fiber.App, *cache.Store) {
	t.Helper()

	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("创建 store 失败: %v", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	app, err := server.NewApp(server.AppOptions{
		Logger:       logger,
		Store:        store,
		ManifestPath: manifestPath,
		ListenPort:   5400,
	})
	if err != nil {
		t.Fatalf("创建 app 失败: %v", err)
	}
	RegisterCodebookRoutes(app, store, manifestPath, logger)
	return app, store
}

func installEntry(t *testing.T, store *cache.Store, family, version, filename, content string) {
	t.Helper()
	final, err := store.Locate(family, version, filename)
	if err != nil {
		t.Fatalf("locate error: %v", err)
	}
	if err := store.EnsureDir(final); err != nil {
		t.Fatalf("ensure dir error: %v", err)
	}
	temp := filepath.Join(filepath.Dir(final), ".tmp-install")
	if err := os.WriteFile(temp, []byte(content), 0o644); err != nil {
		t.Fatalf("写临时文件失败: %v", err)
	}
	if err := store.Install(temp, final); err != nil {
		t.Fatalf("install error: %v", err)
	}
}
