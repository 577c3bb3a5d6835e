package routes

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/codebook-hub/codebook-hub/internal/cache"
	"github.com/codebook-hub/codebook-hub/internal/integrity"
	"github.com/codebook-hub/codebook-hub/internal/server"
	"github.com/codebook-hub/codebook-hub/internal/version"
)

// RegisterCodebookRoutes 把本地缓存以镜像形式暴露出去：
// 其它机器可以把本实例的 /codebooks/... 地址写进 manifest 的 urls 列表。
func RegisterCodebookRoutes(app *fiber.App, store *cache.Store, manifestPath string, logger *logrus.Logger) {
	if app == nil || store == nil {
		return
	}

	app.Get("/-/healthz", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": version.Full(),
		})
	})

	app.Get("/manifest", func(c fiber.Ctx) error {
		data, err := os.ReadFile(manifestPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "manifest_not_found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "manifest_unreadable"})
		}
		c.Set("Content-Type", "application/json")
		return c.Send(data)
	})

	app.Get("/codebooks/:family/:version/:filename", func(c fiber.Ctx) error {
		started := time.Now()
		requestID := server.RequestID(c)

		result, err := store.Open(c.Params("family"), c.Params("version"), c.Params("filename"))
		if err != nil {
			if errors.Is(err, cache.ErrNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "codebook_not_found"})
			}
			logger.WithFields(logrus.Fields{
				"action":     "serve",
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("serve_open_failed")
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_locator"})
		}
		defer result.Reader.Close()

		// 摘要基于完整文件计算；rename 原子性保证这里读到的永远是完整内容。
		if digest, digestErr := integrity.Digest(result.Entry.FilePath); digestErr == nil {
			c.Set("X-Codebook-Hub-Digest", "sha256:"+digest)
		}

		c.Set("Content-Type", "application/octet-stream")
		if result.Entry.SizeBytes > 0 {
			c.Response().Header.SetContentLength(int(result.Entry.SizeBytes))
		}
		c.Status(fiber.StatusOK)

		_, copyErr := io.Copy(c.Response().BodyWriter(), result.Reader)

		fields := logrus.Fields{
			"action":     "serve",
			"family":     result.Entry.Family,
			"version":    result.Entry.ContentVersion,
			"filename":   result.Entry.Filename,
			"size_bytes": result.Entry.SizeBytes,
			"elapsed_ms": time.Since(started).Milliseconds(),
		}
		if requestID != "" {
			fields["request_id"] = requestID
		}
		if copyErr != nil {
			fields["error"] = copyErr.Error()
			logger.WithFields(fields).Error("serve_failed")
			return fiber.NewError(fiber.StatusInternalServerError, "read cache failed")
		}
		logger.WithFields(fields).Info("serve_complete")
		return nil
	})
}
