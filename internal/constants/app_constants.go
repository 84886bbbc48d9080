package constants

import "time"

const (
	// 上传文件归档的对象前缀
	OriginalsObjectPrefix = "originals/"

	// 未配置 Redis 时进程内缓存的默认存活时间
	DefaultParsedCacheTTL = time.Hour

	// 进程内缓存最多保留的解析结果数量
	MemoryCacheMaxEntries = 1000
)
