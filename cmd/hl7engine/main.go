package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/tribal-ehr/hl7engine/pkg/audit"
	"github.com/tribal-ehr/hl7engine/pkg/cds"
	"github.com/tribal-ehr/hl7engine/pkg/cds/rules"
	"github.com/tribal-ehr/hl7engine/pkg/cdshttp"
	"github.com/tribal-ehr/hl7engine/pkg/hl7"
	"github.com/tribal-ehr/hl7engine/pkg/mllp"
	"github.com/tribal-ehr/hl7engine/pkg/monitoring"
	"github.com/tribal-ehr/hl7engine/pkg/router"
)

const (
	defaultMLLPPort       = "2575"
	defaultHTTPPort       = ":8080"
	defaultMaxConnections = "100"
	defaultIdleTimeoutMs  = "300000"
	defaultMaxDLQSize     = "1000"
	appVersion            = "1.0.0"
)

func main() {
	log.Printf("Starting HL7v2 messaging + CDS Hooks engine v%s...", appVersion)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	logger := monitoring.NewLogger("hl7engine", monitoring.LogLevelInfo)

	auditStore := newAuditStore(logger)
	if closer, ok := auditStore.(interface{ Close() }); ok {
		defer closer.Close()
	}

	overrideStore := newOverrideStore(ctx, logger)

	reg := router.NewRegistry(logger)
	// TODO: register ADT/ORM/ORU/etc. handlers for this deployment's
	// downstream systems; the engine ships with routing and ACK plumbing
	// but no application-specific handlers pre-registered.
	rt := router.New(reg, router.Config{MaxDeadLetterSize: envInt("MAX_DLQ_SIZE", defaultMaxDLQSize)}, logger)

	cdsRegistry := cds.NewRegistry(logger)
	cdsRegistry.Register(rules.NewDrugInteraction())
	cdsRegistry.Register(rules.NewAllergyCheck())
	cdsRegistry.Register(rules.NewImmunizationDue())
	cdsRegistry.Register(rules.NewVitalRangeAlert())

	cdsEngine := cds.NewEngine(cdsRegistry, cds.EngineConfig{}, logger)

	mllpServer := mllp.NewServer(
		mllp.ServerConfig{
			Host:           getEnv("MLLP_HOST", "0.0.0.0"),
			Port:           envInt("MLLP_PORT", defaultMLLPPort),
			MaxConnections: envInt("MLLP_MAX_CONNECTIONS", defaultMaxConnections),
			IdleTimeout:    time.Duration(envInt("MLLP_IDLE_TIMEOUT_MS", defaultIdleTimeoutMs)) * time.Millisecond,
		},
		mllp.Callbacks{
			OnMessage: func(msg *hl7.Message, reply mllp.ReplyFunc) {
				ack := rt.Route(msg)
				if ack == nil {
					logger.Error("hl7engine: failed to build ACK for control ID %s", msg.Header.ControlID)
					return
				}
				if err := reply(ack.Raw); err != nil {
					logger.Error("hl7engine: failed to write ACK: %v", err)
				}
			},
			OnError: func(connID string, err error) {
				logger.Warn("hl7engine: parse error on connection %s: %v", connID, err)
			},
			OnConnectionOpen: func(connID, remoteAddr string) {
				logger.Info("hl7engine: connection %s opened from %s", connID, remoteAddr)
			},
			OnConnectionClose: func(connID string) {
				logger.Info("hl7engine: connection %s closed", connID)
			},
		},
		logger,
		auditStore,
	)

	if err := mllpServer.Start(); err != nil {
		log.Fatalf("Failed to start MLLP server: %v", err)
	}
	logger.Info("hl7engine: MLLP server listening on %s", mllpServer.Addr())

	cdsSurface := cdshttp.New(cdsEngine, rt, overrideStore, logger)
	httpServer := &http.Server{
		Addr:    getEnv("HTTP_ADDR", defaultHTTPPort),
		Handler: cdsSurface,
	}
	go func() {
		logger.Info("hl7engine: HTTP surface listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("hl7engine: HTTP server error: %v", err)
		}
	}()

	<-sig
	logger.Info("hl7engine: shutdown signal received, draining...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("hl7engine: HTTP server shutdown error: %v", err)
	}
	if err := mllpServer.Stop(); err != nil {
		logger.Error("hl7engine: MLLP server shutdown error: %v", err)
	}

	logger.Info("hl7engine: shutdown complete")
}

func newAuditStore(logger *monitoring.Logger) audit.Store {
	hosts := os.Getenv("CASSANDRA_HOSTS")
	if hosts == "" {
		return audit.NoopStore{}
	}
	store, err := audit.NewCassandraStore([]string{hosts}, getEnv("CASSANDRA_KEYSPACE", "hl7engine"))
	if err != nil {
		logger.Warn("hl7engine: failed to initialize cassandra audit store, falling back to no-op: %v", err)
		return audit.NoopStore{}
	}
	logger.Info("hl7engine: audit traffic archive enabled (cassandra)")
	return store
}

func newOverrideStore(ctx context.Context, logger *monitoring.Logger) cds.OverrideStore {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		return cds.NewInMemoryOverrideStore()
	}
	store, err := cds.NewMongoOverrideStore(ctx, mongoURI)
	if err != nil {
		logger.Warn("hl7engine: failed to initialize mongo override store, falling back to in-memory: %v", err)
		return cds.NewInMemoryOverrideStore()
	}
	logger.Info("hl7engine: durable CDS override store enabled (mongodb)")
	return store
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func envInt(key, defaultValue string) int {
	raw := getEnv(key, defaultValue)
	n, err := strconv.Atoi(raw)
	if err != nil {
		n, _ = strconv.Atoi(defaultValue)
	}
	return n
}
