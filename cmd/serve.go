package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anoixa/image-tiers/api/core"
	"github.com/anoixa/image-tiers/config"
	"github.com/anoixa/image-tiers/database/repo/accounts"
	"github.com/anoixa/image-tiers/internal/app"
	"github.com/anoixa/image-tiers/utils"
	"github.com/anoixa/image-tiers/utils/format"
	"github.com/anoixa/image-tiers/utils/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// shutdownTimeout 优雅退出等待时间
const shutdownTimeout = 5 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	container := mustContainer()
	cfg := container.GetConfig()

	if cfg.StorageType == "" || cfg.StorageType == "local" {
		if err := os.MkdirAll(cfg.StorageLocalPath, os.ModePerm); err != nil {
			logger.L.Fatal("failed to create media directory", zap.Error(err))
		}
	}

	password, err := container.Bootstrap(context.Background())
	if err != nil {
		logger.L.Fatal("failed to bootstrap database", zap.Error(err))
	}
	if password != "" {
		fmt.Println("========================================")
		fmt.Println("Default administrator account created")
		fmt.Printf("  username: %s\n", accounts.DefaultAdminUsername)
		fmt.Printf("  password: %s\n", password)
		fmt.Println("This password is shown only once.")
		fmt.Println("========================================")
	}

	// 启动gin
	server, cleanup := core.StartServer(container.ServerDependencies())
	utils.SafeGo(func() {
		logger.L.Info("server started",
			zap.String("addr", cfg.Addr()),
			zap.String("version", config.BuildInfo()),
			zap.String("upload_limit", format.HumanReadableSize(cfg.UploadMaxBytes())))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L.Fatal("server failed to start", zap.Error(err))
		}
	})

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.L.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.L.Error("server forced to shutdown", zap.Error(err))
	}

	if cleanup != nil {
		cleanup()
	}

	// 关闭 DI 容器
	if err := container.Close(); err != nil {
		logger.L.Error("error closing container", zap.Error(err))
	}

	logger.L.Info("server exited")
}

// mustContainer 加载配置、初始化日志并构建容器
func mustContainer() *app.Container {
	config.InitConfig()
	cfg := config.Get()

	if err := logger.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	container := app.NewContainer(cfg)
	if err := container.Init(); err != nil {
		logger.L.Fatal("failed to initialize container", zap.Error(err))
	}
	return container
}
