package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// digestBufSize 控制流式读取的分块大小，保证大文件也只占用固定内存。
const digestBufSize = 1 << 20

// Digest 计算文件全量内容的 SHA-256，并返回小写 hex 编码。
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, digestBufSize)
	if _, err := io.CopyBuffer(h, f, buf); err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Verify 比较文件摘要与期望值（大小写不敏感）。
// expectedHex 为空表示 manifest 作者选择跳过校验、直接信任内容；
// 这是显式的 opt-in 信任缺口，不是默认安全姿态，调用方据此放行。
func Verify(path, expectedHex string) (bool, error) {
	expected := strings.ToLower(strings.TrimSpace(expectedHex))
	if expected == "" {
		return true, nil
	}
	got, err := Digest(path)
	if err != nil {
		return false, err
	}
	return got == expected, nil
}
