package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// DefaultPath 是未显式指定 --manifest 时使用的常规相对路径。
const DefaultPath = "codebooks/standard/manifest.json"

var (
	// ErrManifestNotFound 表示 manifest 文件不存在，对抓取而言是致命错误。
	ErrManifestNotFound = errors.New("manifest not found")
	// ErrTierNotFound 表示 manifest 中没有请求的 tier 条目。
	ErrTierNotFound = errors.New("tier not present in manifest")
)

// Tier 是固定枚举的档位名。
type Tier string

const (
	TierTiny   Tier = "tiny"
	TierSmall  Tier = "small"
	TierMedium Tier = "medium"
	TierLarge  Tier = "large"
)

// Tiers 按档位从小到大列出全部合法取值。
var Tiers = []Tier{TierTiny, TierSmall, TierMedium, TierLarge}

// ParseTier 校验并归一化 tier 名称。
func ParseTier(raw string) (Tier, error) {
	normalized := Tier(strings.ToLower(strings.TrimSpace(raw)))
	for _, t := range Tiers {
		if normalized == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("unsupported tier %q (expected tiny|small|medium|large)", raw)
}

// Artifact 描述单个档位的制品：文件名、可选摘要与镜像地址列表。
type Artifact struct {
	Filename  string   `json:"filename"`
	SHA256Hex string   `json:"sha256_hex"`
	URLs      []string `json:"urls"`
}

// NormalizedSHA256 返回去空白并小写化的期望摘要；空串表示 manifest 未声明摘要。
func (a Artifact) NormalizedSHA256() string {
	return strings.ToLower(strings.TrimSpace(a.SHA256Hex))
}

// TierEntry 把档位名和制品描述绑在一起。
type TierEntry struct {
	Tier     Tier     `json:"tier"`
	Artifact Artifact `json:"artifact"`
}

// Manifest 是外部协作方产出的声明式文档，本工具只读不写。
type Manifest struct {
	Family         string      `json:"family"`
	ContentVersion string      `json:"content_version"`
	Tiers          []TierEntry `json:"tiers"`
}

// Load 读取并解析 manifest JSON。文件缺失与 JSON 非法都是致命错误，
// 分别通过 ErrManifestNotFound 与解码错误向上传递。
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// Resolve 按声明顺序扫描 tiers，返回第一个匹配条目。
// 重复档位以首个为准；未命中返回 ErrTierNotFound，由调用方决定软硬。
func (m *Manifest) Resolve(tier Tier) (TierEntry, error) {
	for _, entry := range m.Tiers {
		if entry.Tier == tier {
			return entry, nil
		}
	}
	return TierEntry{}, fmt.Errorf("%w: %s", ErrTierNotFound, tier)
}
