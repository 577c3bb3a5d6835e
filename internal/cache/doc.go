// Package cache 管理 codebook 制品的磁盘缓存。
//
// 磁盘布局遵循：
//
//	<CacheRoot>/<family>/<content_version>/<filename>
//
// 布局稳定且可被多个进程/版本共享；写入一律走临时文件 + rename，
// 读者要么看到旧的完整文件，要么看到新的完整文件，绝不会读到半截。
package cache
