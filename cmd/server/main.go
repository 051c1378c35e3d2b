package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/gofiber/fiber/v3"

	"fleet_platform/internal/alarm"
	nodesvc "fleet_platform/internal/api/node/service"
	"fleet_platform/internal/global"
	"fleet_platform/internal/logger"
	"fleet_platform/internal/worker"
)

// initLogger khởi tạo và cấu hình logger cho toàn bộ ứng dụng
func initLogger() {
	// Logger tự động đọc environment variables để cấu hình
	if err := logger.Init(nil); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	log := logger.GetAppLogger()
	log.Info("Logger system initialized successfully")
}

// startWorkers khởi tạo và chạy hai background worker: quét session hết hạn
// và tổng hợp thống kê node theo ngày.
func startWorkers(ctx context.Context, notifier *nodesvc.NodeOfflineNotifier) error {
	log := logger.GetAppLogger()
	cfg := global.ServerConfig

	nodeService, err := nodesvc.NewNodeService()
	if err != nil {
		return fmt.Errorf("create node service: %w", err)
	}
	sessionService, err := nodesvc.NewNodeSessionService()
	if err != nil {
		return fmt.Errorf("create node session service: %w", err)
	}
	historyService, err := nodesvc.NewNodeHistoryService()
	if err != nil {
		return fmt.Errorf("create node history service: %w", err)
	}
	statService, err := nodesvc.NewNodeStatService()
	if err != nil {
		return fmt.Errorf("create node stat service: %w", err)
	}
	areaService, err := nodesvc.NewAreaService()
	if err != nil {
		return fmt.Errorf("create area service: %w", err)
	}

	onlineWorker := worker.NewNodeOnlineWorker(
		sessionService,
		nodeService,
		historyService,
		notifier,
		time.Duration(cfg.SessionTimeoutSeconds)*time.Second,
		time.Duration(cfg.SweepIntervalMs)*time.Millisecond,
		time.Duration(cfg.SweepInitialDelayMs)*time.Millisecond,
	)

	statWorker := worker.NewNodeStatWorker(
		nodeService,
		statService,
		areaService,
		time.Duration(cfg.StatsIntervalMs)*time.Millisecond,
		time.Duration(cfg.StatsInitialDelayMs)*time.Millisecond,
	)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(map[string]interface{}{
					"panic": r,
				}).Error("🧹 [NODE_ONLINE] Worker goroutine panic")
			}
		}()
		onlineWorker.Start(ctx)
	}()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(map[string]interface{}{
					"panic": r,
				}).Error("📈 [NODE_STAT] Worker goroutine panic")
			}
		}()
		statWorker.Start(ctx)
	}()

	log.Info("Background workers started successfully")
	return nil
}

// main_thread khởi tạo và chạy Fiber server
func main_thread(app *fiber.App) {
	cfg := global.ServerConfig
	address := ":" + cfg.Address

	log := logger.GetAppLogger()
	log.Info("Starting Fiber server...")

	if cfg.EnableTLS && cfg.TLSCertFile != "" && cfg.TLSKeyFile != "" {
		if _, err := os.Stat(cfg.TLSCertFile); os.IsNotExist(err) {
			log.Fatalf("TLS certificate file not found: %s", cfg.TLSCertFile)
		}
		if _, err := os.Stat(cfg.TLSKeyFile); os.IsNotExist(err) {
			log.Fatalf("TLS key file not found: %s", cfg.TLSKeyFile)
		}

		cert, err := tls.LoadX509KeyPair(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			log.Fatalf("Error loading TLS certificate: %v", err)
		}

		ln, err := net.Listen("tcp", address)
		if err != nil {
			log.Fatalf("Error creating listener: %v", err)
		}

		tlsConfig := &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		}
		tlsListener := tls.NewListener(ln, tlsConfig)

		log.WithFields(map[string]interface{}{
			"address": address,
		}).Info("Starting server with HTTPS/TLS")

		if err := app.Listener(tlsListener); err != nil {
			log.Fatalf("Error in Fiber Listener with TLS: %v", err)
		}
	} else {
		log.WithFields(map[string]interface{}{
			"address":  address,
			"protocol": "HTTP",
		}).Info("Starting server with HTTP")

		if err := app.Listen(address, fiber.ListenConfig{}); err != nil {
			log.Fatalf("Error in Fiber Listen: %v", err)
		}
	}
}

// Hàm main
func main() {
	// Khởi tạo logger
	initLogger()

	// Khởi tạo các biến toàn cục
	InitGlobal()

	// Khởi tạo registry
	InitRegistry()

	log := logger.GetAppLogger()
	cfg := global.ServerConfig

	// Các thành phần dùng chung giữa API và worker
	sessionService, err := nodesvc.NewNodeSessionService()
	if err != nil {
		log.Fatalf("Failed to create node session service: %v", err)
	}
	policy := alarm.NewThrottlePolicy(time.Duration(cfg.AlarmThrottleSeconds) * time.Second)
	dispatcher := alarm.NewWebhookDispatcher()
	notifier := nodesvc.NewNodeOfflineNotifier(sessionService, policy, dispatcher)
	tokenService := nodesvc.NewNodeTokenService(cfg.JwtSecret, 0)

	// Chạy các background worker
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := startWorkers(ctx, notifier); err != nil {
		log.Fatalf("Failed to start workers: %v", err)
	}

	// Chạy Fiber server trên main thread
	app := InitFiberApp(tokenService, notifier)
	main_thread(app)
}
