package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + manifest 路径等基础字段，便于不同入口复用。
func BaseFields(action, manifestPath string) logrus.Fields {
	return logrus.Fields{
		"action":       action,
		"manifestPath": manifestPath,
	}
}

// FetchFields 提供 family/版本/tier 等抓取维度字段，供抓取日志复用。
func FetchFields(opID, family, contentVersion, tier string, cacheHit bool) logrus.Fields {
	return logrus.Fields{
		"op_id":           opID,
		"family":          family,
		"content_version": contentVersion,
		"tier":            tier,
		"cache_hit":       cacheHit,
	}
}
