package bootstrap

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"tricys-client/internal/config"
	"tricys-client/internal/controller"
	"tricys-client/internal/handler"
	"tricys-client/internal/metrics"
	"tricys-client/internal/pkg/logger"
	"tricys-client/internal/router"
	"tricys-client/internal/service"
	"tricys-client/internal/websocket"
	"tricys-client/pkg/api"
	"tricys-client/pkg/events"
	pktNats "tricys-client/pkg/nats"
	"tricys-client/pkg/simulation"
	"tricys-client/pkg/store"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

type Container struct {
	// Controllers
	AuthController       controller.IAuthController
	ViewerController     controller.IViewerController
	NavigationController controller.INavigationController
	AnalysisController   controller.IAnalysisController
	AdminController      controller.IAdminController

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub

	// Core state, exposed for the headless entry point
	AuthService   *service.AuthService
	Store         *simulation.Store
	Notifications *service.NotificationService
	Dialogs       *service.DialogService
	Guard         *router.Guard
	Metrics       *metrics.Collector
	Logger        *logger.ZapLogger

	bus     *events.Bus
	storage store.KeyValueStore
	natsPub *pktNats.Publisher
	natsSub *pktNats.Subscriber
	rdb     *redis.Client
}

func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	wsLogger := logger.NewIsolatedLogger(cfg.Bridge.WSLogFilePath)

	storage, rdb, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	collector, err := metrics.NewCollector(prometheus.NewRegistry())
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	// 2. Event Bus
	bus := events.NewBus()

	// 2.5 Infrastructure
	// NATS is optional; without it events stay in-process.
	origin := uuid.NewString()
	var natsPub *pktNats.Publisher
	var natsSub *pktNats.Subscriber
	if cfg.App.NatsURL != "" {
		natsPub, err = pktNats.NewPublisher(cfg.App.NatsURL, origin)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		}
		natsSub, err = pktNats.NewSubscriber(cfg.App.NatsURL, origin)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
		}
	}

	// WebSocket Hub
	wsHub := websocket.NewHub(rdb, wsLogger)

	// 3. Backend API
	client := api.NewClient(cfg.API.BaseURL, storage, sysLogger,
		api.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout()}),
		api.WithMetrics(collector),
	)
	authAPI := api.NewAuthAPI(client)
	userAPI := api.NewUserAPI(client)
	projectAPI := api.NewProjectAPI(client)
	taskAPI := api.NewTaskAPI(client)

	// 4. Services
	authService := service.NewAuthService(authAPI, userAPI, storage, bus, sysLogger)
	notifService := service.NewNotificationService(cfg.NotifyDuration(), wsHub, wsLogger) // Hub implements NotificationDelivery
	dialogService := service.NewDialogService(wsHub)

	simStore := simulation.New(simulation.Deps{
		Projects:  projectAPI,
		Analysis:  api.NewAnalysisAPI(client),
		Library:   api.NewLibraryAPI(client),
		Session:   authService,
		Storage:   storage,
		Publisher: bus,
		Toaster:   notifService,
		Metrics:   collector,
		Logger:    sysLogger,
	}, simulation.Options{
		PlaybackInterval: cfg.PlaybackInterval(),
		ViewportWidth:    cfg.Viewer.ViewportWidth,
	})

	guard := router.NewGuard(authService, storage, notifService, sysLogger)

	// Handler
	notifHandler := handler.NewNotificationHandler(notifService, dialogService, wsHub, wsLogger)

	// 5. Controllers
	return &Container{
		AuthController:       controller.NewAuthController(authService),
		ViewerController:     controller.NewViewerController(simStore),
		NavigationController: controller.NewNavigationController(guard, simStore, sysLogger),
		AnalysisController:   controller.NewAnalysisController(simStore, projectAPI, taskAPI, api.NewVisualizerAPI(client)),
		AdminController:      controller.NewAdminController(userAPI),
		NotificationHandler:  notifHandler,
		WebSocketHub:         wsHub,

		AuthService:   authService,
		Store:         simStore,
		Notifications: notifService,
		Dialogs:       dialogService,
		Guard:         guard,
		Metrics:       collector,
		Logger:        sysLogger,

		bus:     bus,
		storage: storage,
		natsPub: natsPub,
		natsSub: natsSub,
		rdb:     rdb,
	}, nil
}

// Start launches the background workers: the hub loop, the alert toaster,
// the websocket relay and, when configured, the NATS forwarder and follower.
// They all stop with ctx.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)

	if err := c.Notifications.Start(ctx, c.bus); err != nil {
		return fmt.Errorf("notification service: %w", err)
	}
	if err := c.WebSocketHub.Relay(ctx, c.bus); err != nil {
		return fmt.Errorf("websocket relay: %w", err)
	}

	if c.natsPub != nil {
		ch, err := c.bus.Subscribe(ctx)
		if err != nil {
			return fmt.Errorf("nats forwarder: %w", err)
		}
		go c.natsPub.Forward(ctx, ch)
	}
	if c.natsSub != nil {
		if err := c.WebSocketHub.Relay(ctx, c.natsSub); err != nil {
			c.Logger.Warn("Container", "NATS follower unavailable", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

// Close releases connections. Call after the ctx given to Start is done.
func (c *Container) Close() {
	c.Store.Pause()
	if err := c.bus.Close(); err != nil {
		c.Logger.Warn("Container", "Event bus close failed", map[string]interface{}{"error": err.Error()})
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
	_ = c.Logger.Sync()
}

func openStorage(cfg *config.Config) (store.KeyValueStore, *redis.Client, error) {
	switch cfg.Storage.Driver {
	case "memory":
		return store.NewMemoryStore(), nil, nil
	case "redis":
		rs, err := store.NewRedisStoreFromURL(context.Background(), cfg.Storage.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis storage: %w", err)
		}
		return rs, rs.Client(), nil
	case "file", "":
		fs, err := store.NewFileStore(cfg.Storage.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("file storage: %w", err)
		}
		return fs, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
