package constants

import (
	"fmt"
	"strings"
)

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// ResumeModulePrefix 简历模块
	ResumeModulePrefix = "resume"

	// EntityParsed 解析结果实体
	EntityParsed = "parsed"

	// KeyParsedResume 解析结果缓存 (STRING, JSON)
	// 格式: app:resume:parsed:{parseID}
	KeyParsedResume = AppPrefix + ":" + ResumeModulePrefix + ":" + EntityParsed + ":%s"
)

// FormatKey 按格式常量填充动态部分，空值会被拒绝
func FormatKey(format string, parts ...string) (string, error) {
	args := make([]any, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) == "" {
			return "", fmt.Errorf("redis key %q 的动态部分不能为空", format)
		}
		args = append(args, p)
	}
	return fmt.Sprintf(format, args...), nil
}
