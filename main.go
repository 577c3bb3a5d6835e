package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/codebook-hub/codebook-hub/internal/cache"
	"github.com/codebook-hub/codebook-hub/internal/config"
	"github.com/codebook-hub/codebook-hub/internal/fetch"
	"github.com/codebook-hub/codebook-hub/internal/logging"
	"github.com/codebook-hub/codebook-hub/internal/manifest"
	"github.com/codebook-hub/codebook-hub/internal/mirror"
	"github.com/codebook-hub/codebook-hub/internal/server"
	"github.com/codebook-hub/codebook-hub/internal/server/routes"
	"github.com/codebook-hub/codebook-hub/internal/version"
)

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	manifestPath   string
	tier           string
	cacheRoot      string
	outputPath     string
	require        bool
	serve          bool
	configPath     string
	configExplicit bool
	showVersion    bool
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	opts, err := parseCLIFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		os.Exit(2)
	}
	os.Exit(run(opts))
}

// run 根据解析到的 CLI 选项执行业务流程，并返回退出码，方便测试。
// 退出码约定：0 表示成功（含非 require 模式下的软缺失），2 表示致命错误。
func run(opts cliOptions) int {
	if opts.showVersion {
		printVersion()
		return 0
	}

	cfg, err := config.Load(opts.configPath, opts.configExplicit)
	if err != nil {
		fmt.Fprintf(stdErr, "加载配置失败: %v\n", err)
		return 2
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化日志失败: %v\n", err)
		return 2
	}

	cacheRoot := config.ResolveCacheRoot(opts.cacheRoot, cfg.Global.CacheRoot)
	store, err := cache.NewStore(cacheRoot)
	if err != nil {
		fmt.Fprintf(stdErr, "初始化缓存目录失败: %v\n", err)
		return 2
	}

	if opts.serve {
		if err := startHTTPServer(cfg, store, opts.manifestPath, logger); err != nil {
			fmt.Fprintf(stdErr, "镜像服务启动失败: %v\n", err)
			return 2
		}
		return 0
	}

	if opts.tier == "" {
		fmt.Fprintln(stdErr, "--tier 为必填项（tiny|small|medium|large）")
		return 2
	}
	tier, err := manifest.ParseTier(opts.tier)
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		return 2
	}

	client := mirror.NewClient(cfg.Global.DownloadTimeout.DurationValue())
	downloader := mirror.NewDownloader(client, logger)
	orchestrator := fetch.NewOrchestrator(store, downloader, logger)

	result, err := orchestrator.Fetch(context.Background(), fetch.Options{
		ManifestPath: opts.manifestPath,
		Tier:         tier,
		OutputPath:   opts.outputPath,
		Require:      opts.require,
	})
	if err != nil {
		fmt.Fprintln(stdErr, err.Error())
		return 2
	}

	// 软缺失输出解释信息，其余输出最终解析出的制品路径；
	// 脚本化调用方应依赖退出码而非解析文本。
	if result.Outcome == fetch.OutcomeSoftMissing {
		fmt.Fprintln(stdOut, result.Reason)
		return 0
	}
	fmt.Fprintln(stdOut, result.Path)
	return 0
}

// parseCLIFlags 解析 CLI 参数，并结合环境变量计算最终的配置路径。
func parseCLIFlags(args []string) (cliOptions, error) {
	fs := flag.NewFlagSet("codebook-hub", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var opts cliOptions
	var configFlag string

	fs.StringVar(&opts.manifestPath, "manifest", manifest.DefaultPath, "manifest 文档路径")
	fs.StringVar(&opts.tier, "tier", "", "要抓取的档位（tiny|small|medium|large）")
	fs.StringVar(&opts.cacheRoot, "cache-root", "", "覆盖默认缓存根目录")
	fs.StringVar(&opts.outputPath, "output", "", "若设置，额外把制品复制到该路径")
	fs.BoolVar(&opts.require, "require", false, "严格模式：软缺失条件升级为致命错误")
	fs.BoolVar(&opts.serve, "serve", false, "以镜像服务形式对外提供本地缓存")
	fs.StringVar(&configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 CODEBOOK_HUB_CONFIG 覆盖）")
	fs.BoolVar(&opts.showVersion, "version", false, "显示版本信息")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, fmt.Errorf("解析参数失败: %w", err)
	}

	path := os.Getenv("CODEBOOK_HUB_CONFIG")
	if configFlag != "" {
		path = configFlag
	}
	opts.configExplicit = path != ""
	if path == "" {
		path = config.DefaultConfigFile
	}
	opts.configPath = path

	return opts, nil
}

func startHTTPServer(cfg *config.Config, store *cache.Store, manifestPath string, logger *logrus.Logger) error {
	port := cfg.Global.ListenPort
	app, err := server.NewApp(server.AppOptions{
		Logger:       logger,
		Store:        store,
		ManifestPath: manifestPath,
		ListenPort:   port,
	})
	if err != nil {
		return err
	}
	routes.RegisterCodebookRoutes(app, store, manifestPath, logger)

	logger.WithFields(logrus.Fields{
		"action":     "listen",
		"port":       port,
		"cache_root": store.BasePath(),
		"version":    version.Full(),
	}).Info("镜像服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}
