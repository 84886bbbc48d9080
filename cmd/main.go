package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"

	"cv-assistant-go/internal/api/handler"
	"cv-assistant-go/internal/api/router"
	"cv-assistant-go/internal/chat"
	"cv-assistant-go/internal/config"
	"cv-assistant-go/internal/logger"
	"cv-assistant-go/internal/mcpserver"
	"cv-assistant-go/internal/notify"
	"cv-assistant-go/internal/parser"
	"cv-assistant-go/internal/storage"
	"cv-assistant-go/internal/tracing"
	"cv-assistant-go/pkg/agent"
	"cv-assistant-go/pkg/ratelimit"
)

func main() {
	var (
		configPath string
		mcpMode    bool
		initConfig string
	)
	pflag.StringVarP(&configPath, "config", "c", "", "Path to config file (default: search config.yaml, configs/config.yaml)")
	pflag.BoolVar(&mcpMode, "mcp", false, "Run as an MCP server over stdio instead of HTTP")
	pflag.StringVar(&initConfig, "init-config", "", "Write a sample config file to the given path and exit")
	pflag.Parse()

	if initConfig != "" {
		if err := config.CreateSampleConfig(initConfig); err != nil {
			logger.Fatal().Err(err).Msg("生成示例配置失败")
		}
		logger.Info().Str("path", initConfig).Msg("示例配置已生成")
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	// stdio 模式下 stdout 是协议通道，日志只能写 stderr
	var logOutput io.Writer = os.Stdout
	if mcpMode {
		logOutput = os.Stderr
	}
	logCloser := initLogger(cfg, logOutput)
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		ServiceName: cfg.Server.ServiceName,
		Version:     cfg.Server.Version,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("关闭链路追踪失败")
		}
	}()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()

	resumeHandler := initializeHandler(ctx, cfg, storageManager)

	if mcpMode {
		if err := mcpserver.Run(ctx, mcpserver.NewServer(resumeHandler)); err != nil && ctx.Err() == nil {
			logger.Error().Err(err).Msg("MCP server 异常退出")
		}
		return
	}

	// 服务端 span 使用 tracing.Setup 注册的全局 provider
	serverTracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithMaxRequestBodySize(int(cfg.Upload.MaxBytes())+(1<<20)),
		serverTracer,
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		start := time.Now()
		ctx.Next(c)
		glog.CtxInfof(c, "%s %s -> %d (%s)", string(ctx.Method()), string(ctx.Path()), ctx.Response.StatusCode(), time.Since(start))
	})

	router.RegisterRoutes(h, resumeHandler, cfg.Auth.APIKey)
	if cfg.Auth.APIKey == "" {
		logger.Warn().Msg("未设置 API_KEY，/api/send-email 不做鉴权")
	}

	logger.Info().Str("addr", cfg.Server.Address).Msg("HTTP 服务器启动中")
	go func() {
		if err := h.Run(); err != nil {
			logger.Fatal().Err(err).Msg("启动HTTP服务器失败")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
	}
	logger.Info().Msg("优雅退出完成")
}

func initLogger(cfg *config.Config, output io.Writer) io.Closer {
	closer, err := logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		File:         cfg.Logger.File,
		Output:       output,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化日志失败")
	}
	logger.SetupHertz()
	return closer
}

func initializeHandler(ctx context.Context, cfg *config.Config, storageManager *storage.Storage) *handler.ResumeHandler {
	resumeParser := parser.NewResumeParser(parser.WithExtractorConfig(parser.ExtractorConfig{
		RawLimit:         cfg.Extraction.RawLimit,
		MaxSkills:        cfg.Extraction.MaxSkills,
		MaxJobs:          cfg.Extraction.MaxJobs,
		SkillsMinCount:   cfg.Extraction.SkillsMinCount,
		DescriptionLimit: cfg.Extraction.DescriptionLimit,
	}))

	pdfExtractor := initPDFExtractor(ctx, cfg.PDF)

	var chatOpts []chat.Option
	if cfg.AI.Enabled() {
		chatModel, err := agent.NewOpenAICompatChatModel(cfg.AI.APIKey, cfg.AI.Model, cfg.AI.APIURL,
			agent.WithTemperature(cfg.AI.Temperature),
			agent.WithMaxTokens(cfg.AI.MaxTokens),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("初始化外部模型失败，问答只使用规则")
		} else {
			limited := ratelimit.NewLLMWithRateLimit(chatModel, cfg.AI.Model, cfg.ModelQPMLimits, cfg.AI.QPM)
			chatOpts = append(chatOpts, chat.WithProvider(chat.NewLLMProvider(cfg.AI.Provider, limited)))
			logger.Info().Str("provider", cfg.AI.Provider).Str("model", cfg.AI.Model).Msg("外部模型已启用")
		}
	}
	chatOpts = append(chatOpts, chat.WithTimeout(cfg.AI.Timeout()))

	mailer := notify.NewMailerFromConfig(cfg.Email)
	if mailer.Configured() {
		logger.Info().Strs("providers", mailer.Providers()).Msg("邮件服务已配置")
	} else {
		logger.Warn().Msg("未配置邮件服务，send_email 将返回错误")
	}

	return handler.NewResumeHandler(handler.Dependencies{
		Parser:      resumeParser,
		Extractor:   parser.NewFileTextExtractor(pdfExtractor),
		Dispatcher:  chat.NewDispatcher(chatOpts...),
		Mailer:      mailer,
		Cache:       storageManager.Cache,
		Archive:     storageManager.Archive(),
		Upload:      cfg.Upload,
		ServiceName: "CV Assistant MCP Server",
	})
}

// initPDFExtractor 按配置选择 PDF 后端，失败时返回 nil，上传接口不再接受 PDF
func initPDFExtractor(ctx context.Context, cfg config.PDFConfig) parser.TextExtractor {
	if cfg.Backend == "tika" {
		tika, err := parser.NewTikaTextExtractor(cfg.TikaURL,
			parser.WithTikaTimeout(cfg.Timeout()),
			parser.WithTikaLogger(logger.Component("pdf")),
		)
		if err != nil {
			logger.Warn().Err(err).Msg("创建Tika PDF提取器失败，上传接口不支持 PDF")
			return nil
		}
		logger.Info().Str("url", cfg.TikaURL).Msg("使用Tika PDF解析器")
		return tika
	}

	einoPDF, err := parser.NewEinoPDFTextExtractor(ctx,
		parser.WithEinoTimeout(cfg.Timeout()),
		parser.WithEinoLogger(logger.Component("pdf")),
	)
	if err != nil {
		logger.Warn().Err(err).Msg("创建Eino PDF提取器失败，上传接口不支持 PDF")
		return nil
	}
	logger.Info().Msg("使用Eino PDF解析器")
	return einoPDF
}
