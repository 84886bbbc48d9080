package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 应用程序配置
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logger     LoggerConfig     `yaml:"logger"`
	Extraction ExtractionConfig `yaml:"extraction"`
	PDF        PDFConfig        `yaml:"pdf"`
	AI         AIConfig         `yaml:"ai"`
	Email      EmailConfig      `yaml:"email"`
	Redis      RedisConfig      `yaml:"redis"`
	MinIO      MinIOConfig      `yaml:"minio"`
	Upload     UploadConfig     `yaml:"upload"`
	Auth       AuthConfig       `yaml:"auth"`
	Tracing    TracingConfig    `yaml:"tracing"`

	// 模型QPM限制，未列出的模型使用 ai.qpm
	ModelQPMLimits map[string]int `yaml:"model_qpm_limits"`
}

// ServerConfig 定义服务器配置
type ServerConfig struct {
	Address     string `yaml:"address"` // 例如 ":3001" or "0.0.0.0:3001"
	ServiceName string `yaml:"service_name"`
	Version     string `yaml:"version"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json, pretty
	TimeFormat   string `yaml:"time_format"`   // 时间格式
	ReportCaller bool   `yaml:"report_caller"` // 是否报告调用位置
	File         string `yaml:"file"`          // 可选，额外写入的日志文件
}

// ExtractionConfig 规则抽取的各项上限
type ExtractionConfig struct {
	RawLimit         int `yaml:"raw_limit"`         // raw 字段最大字符数
	MaxSkills        int `yaml:"max_skills"`        // 技能条目上限
	MaxJobs          int `yaml:"max_jobs"`          // 经历条目上限
	SkillsMinCount   int `yaml:"skills_min_count"`  // 少于该数量时扫描全文补充技能
	DescriptionLimit int `yaml:"description_limit"` // 项目描述最大字符数
}

// PDFConfig PDF 文本提取后端
type PDFConfig struct {
	Backend        string `yaml:"backend"`         // eino 或 tika
	TikaURL        string `yaml:"tika_url"`        // 例如 http://localhost:9998
	TimeoutSeconds int    `yaml:"timeout_seconds"` // 单个文件的提取超时
}

// Timeout 提取超时
func (c PDFConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AIConfig 外部模型配置（OpenAI 兼容接口）
type AIConfig struct {
	Provider       string  `yaml:"provider"` // 作为回答的 source 字段
	APIKey         string  `yaml:"api_key"`
	APIURL         string  `yaml:"api_url"`
	Model          string  `yaml:"model"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	QPM            int     `yaml:"qpm"`
	Temperature    float32 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
}

// Enabled 配置了 key 才启用外部模型
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

// Timeout 单次调用超时
func (c AIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HTTPMailConfig 基于 HTTP API 的邮件服务
type HTTPMailConfig struct {
	APIKey   string `yaml:"api_key"`
	Endpoint string `yaml:"endpoint"` // 为空时使用官方地址
}

// SMTPConfig SMTP 配置
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Secure   bool   `yaml:"secure"` // true 时直接 TLS 连接，否则尝试 STARTTLS
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// EmailConfig 邮件发送配置，按 MailerSend -> Brevo -> SendGrid -> SMTP 顺序尝试
type EmailConfig struct {
	From           string         `yaml:"from"`
	FromName       string         `yaml:"from_name"`
	TimeoutSeconds int            `yaml:"timeout_seconds"`
	MailerSend     HTTPMailConfig `yaml:"mailersend"`
	Brevo          HTTPMailConfig `yaml:"brevo"`
	SendGrid       HTTPMailConfig `yaml:"sendgrid"`
	SMTP           SMTPConfig     `yaml:"smtp"`
}

// Timeout 单个服务商的发送超时
func (c EmailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RedisConfig holds configuration for Redis
type RedisConfig struct {
	Address  string `yaml:"address"` // 为空时使用进程内缓存
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// 连接池设置
	PoolSize     int `yaml:"pool_size"`
	MinIdleConns int `yaml:"min_idle_conns"`
	// 超时设置
	DialTimeoutSeconds  int `yaml:"dial_timeout_seconds"`
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	MaxRetries          int `yaml:"max_retries"`
	// 解析结果缓存时间(分钟)
	ParsedTTLMinutes int `yaml:"parsed_ttl_minutes"`
}

// ParsedTTL 解析结果缓存时间
func (c RedisConfig) ParsedTTL() time.Duration {
	return time.Duration(c.ParsedTTLMinutes) * time.Minute
}

// MinIOConfig MinIO配置结构
type MinIOConfig struct {
	Endpoint        string `yaml:"endpoint"` // 为空时不归档上传文件
	AccessKeyID     string `yaml:"accessKeyID"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	UseSSL          bool   `yaml:"useSSL"`
	BucketName      string `yaml:"bucketName"`
	Location        string `yaml:"location"`
}

// UploadConfig 上传限制
type UploadConfig struct {
	MaxSizeMB         int      `yaml:"max_size_mb"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
}

// MaxBytes 上传大小上限(字节)
func (c UploadConfig) MaxBytes() int64 {
	return int64(c.MaxSizeMB) << 20
}

// AuthConfig 接口鉴权
type AuthConfig struct {
	APIKey string `yaml:"api_key"` // 设置后 /api/send-email 需要 x-api-key 头
}

// TracingConfig OTLP 导出配置
type TracingConfig struct {
	Endpoint    string  `yaml:"endpoint"` // 为空时不导出
	Insecure    bool    `yaml:"insecure"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// 未指定路径时依次查找的位置
var defaultSearchPaths = []string{
	"config.yaml",
	"configs/config.yaml",
	"internal/config/config.yaml",
}

// LoadConfig 从文件加载配置，随后用 .env 和环境变量覆盖，最后补齐默认值
// configPath 为空且默认位置都不存在时只使用环境变量和默认值
func LoadConfig(configPath string) (*Config, error) {
	if configPath == "" {
		for _, path := range defaultSearchPaths {
			if _, err := os.Stat(path); err == nil {
				configPath = path
				break
			}
		}
	}

	config := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("配置文件不存在: %s", configPath)
			}
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	loadEnvFiles(configPath)
	applyEnvOverrides(config)
	applyDefaults(config)
	return config, nil
}

// loadEnvFiles 加载工作目录和配置文件所在目录下的 .env，已存在的环境变量不会被覆盖
func loadEnvFiles(configPath string) {
	candidates := []string{".env"}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
}

func applyEnvOverrides(config *Config) {
	setString := func(dst *string, keys ...string) {
		for _, key := range keys {
			if v := strings.TrimSpace(os.Getenv(key)); v != "" {
				*dst = v
				return
			}
		}
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.Server.Address = ":" + port
	}
	setString(&config.Logger.Level, "LOG_LEVEL")

	setString(&config.PDF.Backend, "PDF_BACKEND")
	setString(&config.PDF.TikaURL, "TIKA_URL")

	setString(&config.AI.APIKey, "GROQ_API_KEY", "AI_API_KEY")
	setString(&config.AI.APIURL, "AI_API_URL")
	setString(&config.AI.Model, "AI_MODEL")

	setString(&config.Email.From, "EMAIL_FROM")
	setString(&config.Email.FromName, "EMAIL_FROM_NAME")
	setString(&config.Email.MailerSend.APIKey, "MAILERSEND_API_KEY")
	setString(&config.Email.Brevo.APIKey, "BREVO_API_KEY")
	setString(&config.Email.SendGrid.APIKey, "SENDGRID_API_KEY")
	setString(&config.Email.SMTP.Host, "SMTP_HOST")
	setString(&config.Email.SMTP.Username, "SMTP_USER")
	setString(&config.Email.SMTP.Password, "SMTP_PASS")
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Email.SMTP.Port = port
		}
	}
	if v := os.Getenv("SMTP_SECURE"); v != "" {
		config.Email.SMTP.Secure = v == "true"
	}

	setString(&config.Redis.Address, "REDIS_ADDR")
	setString(&config.Redis.Password, "REDIS_PASSWORD")
	setString(&config.MinIO.Endpoint, "MINIO_ENDPOINT")
	setString(&config.MinIO.AccessKeyID, "MINIO_ACCESS_KEY")
	setString(&config.MinIO.SecretAccessKey, "MINIO_SECRET_KEY")

	setString(&config.Auth.APIKey, "API_KEY")
	setString(&config.Tracing.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func applyDefaults(config *Config) {
	// 服务器
	if config.Server.Address == "" {
		config.Server.Address = ":3001"
	}
	if config.Server.ServiceName == "" {
		config.Server.ServiceName = "cv-assistant-go"
	}
	if config.Server.Version == "" {
		config.Server.Version = "1.0.0"
	}

	// 日志
	if config.Logger.Level == "" {
		config.Logger.Level = "info"
	}
	if config.Logger.Format == "" {
		config.Logger.Format = "pretty"
	}
	if config.Logger.TimeFormat == "" {
		config.Logger.TimeFormat = "2006-01-02 15:04:05"
	}

	// 抽取
	e := &config.Extraction
	if e.RawLimit <= 0 {
		e.RawLimit = 4000
	}
	if e.MaxSkills <= 0 {
		e.MaxSkills = 30
	}
	if e.MaxJobs <= 0 {
		e.MaxJobs = 10
	}
	if e.SkillsMinCount <= 0 {
		e.SkillsMinCount = 8
	}
	if e.DescriptionLimit <= 0 {
		e.DescriptionLimit = 250
	}

	// PDF
	if config.PDF.Backend == "" {
		config.PDF.Backend = "eino"
	}
	if config.PDF.TimeoutSeconds <= 0 {
		config.PDF.TimeoutSeconds = 60
	}

	// 外部模型
	if config.AI.Provider == "" {
		config.AI.Provider = "groq"
	}
	if config.AI.APIURL == "" {
		config.AI.APIURL = "https://api.groq.com/openai/v1/chat/completions"
	}
	if config.AI.Model == "" {
		config.AI.Model = "llama-3.1-8b-instant"
	}
	if config.AI.TimeoutSeconds <= 0 {
		config.AI.TimeoutSeconds = 30
	}
	if config.AI.QPM <= 0 {
		config.AI.QPM = 30
	}
	if config.AI.MaxTokens <= 0 {
		config.AI.MaxTokens = 500
	}
	if config.AI.Temperature == 0 {
		config.AI.Temperature = 0.3
	}

	// 邮件
	if config.Email.FromName == "" {
		config.Email.FromName = "MCP CV Assistant"
	}
	if config.Email.TimeoutSeconds <= 0 {
		config.Email.TimeoutSeconds = 10
	}
	if config.Email.SMTP.Port == 0 {
		config.Email.SMTP.Port = 587
	}

	// Redis
	if config.Redis.PoolSize <= 0 {
		config.Redis.PoolSize = 10
	}
	if config.Redis.DialTimeoutSeconds <= 0 {
		config.Redis.DialTimeoutSeconds = 5
	}
	if config.Redis.ReadTimeoutSeconds <= 0 {
		config.Redis.ReadTimeoutSeconds = 3
	}
	if config.Redis.WriteTimeoutSeconds <= 0 {
		config.Redis.WriteTimeoutSeconds = 3
	}
	if config.Redis.ParsedTTLMinutes <= 0 {
		config.Redis.ParsedTTLMinutes = 60
	}

	// MinIO
	if config.MinIO.BucketName == "" {
		config.MinIO.BucketName = "cv-originals"
	}

	// 上传
	if config.Upload.MaxSizeMB <= 0 {
		config.Upload.MaxSizeMB = 10
	}
	if len(config.Upload.AllowedExtensions) == 0 {
		config.Upload.AllowedExtensions = []string{".pdf", ".docx", ".txt", ".md"}
	}

	if config.Tracing.SampleRatio <= 0 {
		config.Tracing.SampleRatio = 1
	}
}

// CreateSampleConfig 创建一个示例配置文件
func CreateSampleConfig(filePath string) error {
	if _, err := os.Stat(filePath); err == nil {
		return fmt.Errorf("文件 '%s' 已存在，不会覆盖", filePath)
	}

	config := &Config{}
	applyDefaults(config)

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("写入示例配置文件 '%s' 失败: %w", filePath, err)
	}
	return nil
}

// QPMForModel 获取模型的 QPM 限制，未配置时返回 ai.qpm
func (c *Config) QPMForModel(model string) int {
	if qpm, ok := c.ModelQPMLimits[model]; ok && qpm > 0 {
		return qpm
	}
	return c.AI.QPM
}
