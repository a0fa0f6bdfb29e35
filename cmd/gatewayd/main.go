// Command gatewayd wires the Streaming Serving Fabric's collaborators
// (config, logger, auth, session storage, tool bridge, the fake/demo model
// runner) and runs the Gateway façade until terminated.
//
// Grounded on the teacher's cmd/server/main.go wiring sequence (load
// config, construct services, start servers, wait for SIGINT/SIGTERM,
// graceful shutdown with a timeout), restructured around the Gateway
// façade instead of a package-main script building a gin.Engine inline.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"google.golang.org/api/option"

	"github.com/streamfabric/gateway/internal/agentmodel"
	"github.com/streamfabric/gateway/internal/auth"
	"github.com/streamfabric/gateway/internal/config"
	"github.com/streamfabric/gateway/internal/gateway"
	"github.com/streamfabric/gateway/internal/logger"
	"github.com/streamfabric/gateway/internal/sessionstore"
	"github.com/streamfabric/gateway/internal/toolbridge"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.FromConfig(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT")))
	log.Info("starting gatewayd", "instance_id", logger.GetInstanceID())

	validator := buildValidator(cfg)
	sessions := buildSessionStore(log)
	tools := buildToolBridge(log)
	starter := buildStarter()

	gw := gateway.New(cfg, gateway.Deps{
		Starter:   starter,
		Validator: validator,
		Sessions:  sessions,
		Tools:     tools,
		Logger:    log,
	})

	gw.On(gateway.EventStart, func(payload any) {
		log.Info("gateway listening", "addr", payload)
	})
	gw.On(gateway.EventError, func(payload any) {
		if err, ok := payload.(error); ok {
			log.LogError(context.Background(), err, "gateway server error")
		}
	})
	gw.On(gateway.EventShutdown, func(any) {
		log.Info("gateway shutting down")
	})

	if err := gw.Start(); err != nil {
		log.Error("failed to start gateway", "error", err)
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := gw.Stop(true, cfg.Timeouts.Shutdown()); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	log.Info("gatewayd exited cleanly")
}

// buildValidator selects the pluggable auth strategy per cfg.Auth.Mode.
// Token/API-key credential sets come from the environment since they are
// deployment secrets, not config-file material.
func buildValidator(cfg config.Config) auth.Validator {
	switch cfg.Auth.Mode {
	case config.AuthToken:
		return auth.NewTokenValidator(loadSharedSecrets("GATEWAY_TOKENS"))
	case config.AuthAPIKey:
		return auth.NewAPIKeyValidator(loadSharedSecrets("GATEWAY_API_KEYS"))
	case config.AuthMulti:
		v, err := auth.NewFirebaseValidator(context.Background(), os.Getenv("FIREBASE_PROJECT_ID"))
		if err != nil {
			return auth.NewMultiValidator(auth.NewTokenValidator(loadSharedSecrets("GATEWAY_TOKENS")))
		}
		return auth.NewMultiValidator(v, auth.NewTokenValidator(loadSharedSecrets("GATEWAY_TOKENS")))
	default:
		return auth.NoneValidator{}
	}
}

// loadSharedSecrets reads a comma-separated "token:principalId" list from
// the named environment variable. An empty or absent variable yields an
// empty set, so the corresponding auth mode simply rejects every request
// until the deployment supplies credentials.
func loadSharedSecrets(envVar string) map[string]auth.Principal {
	out := make(map[string]auth.Principal)
	raw := os.Getenv(envVar)
	if raw == "" {
		return out
	}
	for _, pair := range strings.Split(raw, ",") {
		kv := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(kv) != 2 || kv[0] == "" {
			continue
		}
		out[kv[0]] = auth.Principal{ID: kv[1], Permissions: []string{"*"}}
	}
	return out
}

// buildSessionStore picks a backend by environment: Postgres when DSN is
// set, Firestore when a GCP project is configured, otherwise an in-memory
// store suitable for local runs and demos.
func buildSessionStore(log *logger.Logger) sessionstore.Store {
	ctx := context.Background()

	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		store, err := sessionstore.OpenPostgres(ctx, dsn)
		if err != nil {
			log.Error("failed to open postgres session store, falling back to memory", "error", err)
			return sessionstore.NewMemoryStore()
		}
		return store
	}

	if projectID := os.Getenv("FIREBASE_PROJECT_ID"); projectID != "" {
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsFile(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")))
		if err == nil {
			client, err := app.Firestore(ctx)
			if err == nil {
				return sessionstore.OpenFirestore(client)
			}
		}
		log.Error("failed to open firestore session store, falling back to memory", "error", err)
	}

	return sessionstore.NewMemoryStore()
}

// buildToolBridge connects to an MCP server over SSE when MCP_SERVER_URL is
// set; otherwise the tools listing is empty and tool calls respond
// NOT_IMPLEMENTED.
func buildToolBridge(log *logger.Logger) toolbridge.Bridge {
	url := os.Getenv("MCP_SERVER_URL")
	if url == "" {
		return nil
	}

	c, err := client.NewSSEMCPClient(url)
	if err != nil {
		log.Error("failed to construct mcp client", "error", err, "url", url)
		return nil
	}
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		log.Error("failed to start mcp client", "error", err, "url", url)
		return nil
	}
	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{Name: "streamfabric-gateway"}
	if _, err := c.Initialize(ctx, initReq); err != nil {
		log.Error("failed to initialize mcp client", "error", err, "url", url)
		return nil
	}

	return toolbridge.NewMCPBridge(c)
}

// buildStarter returns the demo/fake model runner. A real deployment
// supplies its own agentmodel.Starter (the model/agent runtime is
// explicitly out of this fabric's scope, per the Run Registry's
// interface-only boundary).
func buildStarter() agentmodel.Starter {
	return &agentmodel.FakeStarter{Interval: 40 * time.Millisecond}
}
