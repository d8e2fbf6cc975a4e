package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path"
	"runtime"
	"syscall"
	"time"

	rotates "github.com/lestrrat-go/file-rotatelogs"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"

	"github.com/lchliebedich/wordlib_bot/pkg/api"
	"github.com/lchliebedich/wordlib_bot/pkg/config"
	"github.com/lchliebedich/wordlib_bot/pkg/pipeline"
	"github.com/lchliebedich/wordlib_bot/pkg/processor"
	"github.com/lchliebedich/wordlib_bot/pkg/sink"
	"github.com/lchliebedich/wordlib_bot/pkg/source"
	"github.com/lchliebedich/wordlib_bot/pkg/wordlib"
)

func InitLogger(cfg *config.Config) error {
	// 使用配置文件中的设置
	formatter := &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	}
	logrus.SetFormatter(formatter)

	var level logrus.Level
	var err error
	var logWriter *rotates.RotateLogs

	switch cfg.Log.Level {
	case "DEBUG":
		level = logrus.DebugLevel
	case "WARN":
		level = logrus.WarnLevel
	case "INFO":
		level = logrus.InfoLevel
	case "ERROR":
		level = logrus.ErrorLevel
	case "FATAL":
		level = logrus.FatalLevel
	case "PANIC":
		level = logrus.PanicLevel
	default:
		level = logrus.InfoLevel //默认
	}

	//1、判断文件路径和文件是否存在，不存在则创建
	if _, err := os.Stat(cfg.Log.Dir); os.IsNotExist(err) {
		if err := os.MkdirAll(cfg.Log.Dir, 0755); err != nil {
			return err
		}
	}
	logFileName := path.Join(cfg.Log.Dir, cfg.Log.Filename)

	//2、判断是否设置日志级别，默认为INFO级别
	if level < logrus.PanicLevel || level > logrus.TraceLevel {
		logrus.Errorln("init log failed,level not supported!")
		logrus.SetLevel(logrus.InfoLevel)
	} else {
		logrus.SetLevel(level)
	}

	//3、日志切割功能，按时间来切割
	osVersion := runtime.GOOS
	if osVersion == "windows" {
		logWriter, err = rotates.New(
			logFileName+".%Y%m%d%H%M",
			rotates.WithMaxAge(time.Duration(cfg.Log.MaxAge)*time.Hour),        //文件最大保存时间
			rotates.WithRotationTime(time.Duration(cfg.Log.RotateTime)*time.Hour), //文件切割间隔
		)
	} else {
		logWriter, err = rotates.New(
			logFileName+".%Y%m%d%H%M",
			rotates.WithLinkName(logFileName), //文件软链接
			rotates.WithMaxAge(time.Duration(cfg.Log.MaxAge)*time.Hour),
			rotates.WithRotationTime(time.Duration(cfg.Log.RotateTime)*time.Hour),
		)
	}

	if err != nil {
		return err
	}

	//创建 local file system hook
	//不同的日志级别写入同一个日志文件
	lfHook := lfshook.NewHook(lfshook.WriterMap{
		logrus.DebugLevel: logWriter,
		logrus.InfoLevel:  logWriter,
		logrus.WarnLevel:  logWriter,
		logrus.ErrorLevel: logWriter,
		logrus.FatalLevel: logWriter,
		logrus.PanicLevel: logWriter,
	}, &logrus.TextFormatter{})

	logrus.AddHook(lfHook)
	return nil
}

// matchModeFromConfig 配置里的模式名转成词库匹配模式
func matchModeFromConfig(name string) wordlib.MatchMode {
	if name == "fuzzy" {
		return wordlib.MatchFuzzy
	}
	return wordlib.MatchExact
}

func main() {
	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	if err := InitLogger(cfg); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logrus.Info("Starting wordlib bot...")

	// 创建context用于控制生命周期
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 创建词库存储并完成首次装载
	store := wordlib.NewStore(cfg.Wordlib.Dir, wordlib.Options{
		DefaultMode:    matchModeFromConfig(cfg.Wordlib.DefaultMatchMode),
		CaseSensitive:  cfg.Wordlib.CaseSensitive,
		MaxReplyLength: cfg.Wordlib.MaxReplyLength,
	})

	engine, err := processor.NewWordlibEngine(store)
	if err != nil {
		logrus.Fatalf("Failed to create wordlib engine: %v", err)
	}

	// 创建pipeline
	p := pipeline.NewPipeline()

	// 设置pipeline配置
	if err := p.SetConfig(cfg); err != nil {
		logrus.Fatalf("Failed to set pipeline config: %v", err)
	}

	// 创建消息源和发送方
	var src pipeline.Source
	var sender sink.Sender
	if cfg.Source.Type == "file" {
		// 回放模式：从文件读消息，回复只写日志
		fileSource, err := source.NewFileSource(cfg.Source.Filename, cfg.Pipeline.BufferSize)
		if err != nil {
			logrus.Fatalf("Failed to create file source: %v", err)
		}
		src = fileSource
		sender = sink.NewLogSender()
	} else {
		oneBotSource := source.NewOneBotSource(cfg)
		src = oneBotSource
		sender = oneBotSource
	}

	p.SetSource(src)

	normalizer := processor.NewNormalizer(cfg.Pipeline.WorkerCount)

	// 添加消息规整处理器
	if err := p.AddProcessor(normalizer); err != nil {
		logrus.Errorf("Add Normalizer Processor Failed: %s\n", err)
		return
	}
	// 添加词库匹配处理器
	if err := p.AddProcessor(engine); err != nil {
		logrus.Errorf("Add Wordlib Engine Failed: %s\n", err)
		return
	}

	// 设置回复输出
	replySink := sink.NewReplySink(sender)
	p.SetSink(replySink)

	// 启动管理API
	apiServer := api.NewServer(cfg)
	service := api.NewWordlibService(cfg, engine)
	service.AddStatsProvider("processor", engine.Metrics().GetStats)
	service.AddStatsProvider("normalizer", normalizer.Metrics().GetStats)
	service.AddStatsProvider("sink", replySink.GetStats().GetStats)
	if obs, ok := src.(*source.OneBotSource); ok {
		service.AddStatsProvider("source", obs.GetStats().GetStats)
	}
	service.AddStatsProvider("pipeline", p.GetStats)
	apiServer.RegisterWordlibService(service)

	go func() {
		if err := apiServer.Start(); err != nil {
			logrus.Errorf("API server stopped: %v", err)
		}
	}()

	// 词库目录监控，文件变化后自动重载
	if cfg.Wordlib.AutoReload {
		watcher, err := wordlib.NewWatcher(store, cfg.Wordlib.Dir)
		if err != nil {
			logrus.Warnf("Failed to create wordlib watcher: %v", err)
		} else {
			watcher.Start(ctx)
		}
	}

	// 启动pipeline
	if err := p.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start pipeline: %v", err)
	}

	logrus.Infof("Pipeline started successfully, status: %s", p.Status())

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logrus.Infof("Received signal %v, shutting down...", sig)

	// 优雅退出
	cancel()
	if err := p.Stop(); err != nil {
		logrus.Errorf("Error stopping pipeline: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logrus.Errorf("Error stopping api server: %v", err)
	}

	logrus.Info("Shutdown complete")
}
