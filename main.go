package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"motor-controller/config"
	"motor-controller/controller"
	"motor-controller/handlers"
	"motor-controller/logging"
	"motor-controller/motor"
	appmqtt "motor-controller/mqtt"
	"motor-controller/store"
	"motor-controller/transport"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFile)

	// Build the motor backend through the registry
	backend, err := motor.New(motor.BackendType(cfg.BackendType))
	if err != nil {
		logger.Fatalf("Failed to initialize motor backend: %v", err)
	}

	drive := controller.NewDrive(backend, cfg.MaxSpeedPercent, logger)
	monitor := controller.NewMonitor(drive, cfg.HeartbeatTimeout, time.Second, cfg.HeartbeatMonitoring, logger)

	// Optional Redis status cache
	var snapshotStore controller.SnapshotStore
	if cfg.RedisEnabled {
		statusStore, err := store.NewStatusStore(cfg, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize Redis: %v", err)
		}
		defer statusStore.Close()
		snapshotStore = statusStore
	}

	mqttClient, err := appmqtt.NewClient(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize MQTT client: %v", err)
	}

	mqttTransport := transport.NewMQTTTransport(mqttClient.Paho(), 5*time.Second, logger)
	publisher := controller.NewStatusPublisher(drive, mqttTransport, cfg.StatusTopic, 2*time.Second, snapshotStore, logger)

	// The controller exists before any callback can reach it; both
	// handlers are installed through the client's lock.
	ctrl := controller.NewController(drive, monitor, publisher, cfg, logger)
	mqttClient.SetConnectionLostHandler(ctrl.OnConnectionLost)
	mqttClient.SetCommandHandler(func(payload []byte) {
		// Errors are already logged inside the command path.
		_ = ctrl.HandleCommand(payload)
	})

	ctrl.Start(context.Background())

	// HTTP control/diagnostics surface
	apiHandler := handlers.NewAPIHandler(ctrl, logger)
	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      setupRouter(apiHandler, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Starting HTTP server on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("HTTP server shutdown error: %v", err)
	}

	// Disconnect first so no inbound command can race the backend
	// release, then stop the controller: final stop, joined timers,
	// released backend.
	mqttClient.Disconnect()
	ctrl.Stop()

	logger.Info("Motor controller shut down")
}

func setupRouter(apiHandler *handlers.APIHandler, logger *logging.Logger) *mux.Router {
	router := mux.NewRouter()

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/health", apiHandler.HealthCheck).Methods("GET")
	api.HandleFunc("/status", apiHandler.GetStatus).Methods("GET")
	api.HandleFunc("/command", apiHandler.SendCommand).Methods("POST")

	router.Use(loggingMiddleware(logger))

	return router
}

func loggingMiddleware(logger *logging.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debugf("%s %s %s %v", r.Method, r.RequestURI, r.RemoteAddr, time.Since(start))
		})
	}
}
