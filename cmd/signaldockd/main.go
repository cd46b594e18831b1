// Command signaldockd runs the SignalDock event-routing engine: signal
// sources feed an event bus, a pipeline executor routes matching events
// through filter/transform/action graphs, and a WebSocket hub fans
// everything out to connected clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/signaldock/signaldock/internal/action"
	"github.com/signaldock/signaldock/internal/buildinfo"
	"github.com/signaldock/signaldock/internal/config"
	"github.com/signaldock/signaldock/internal/connwatch"
	"github.com/signaldock/signaldock/internal/eventbus"
	"github.com/signaldock/signaldock/internal/httpkit"
	"github.com/signaldock/signaldock/internal/hub"
	"github.com/signaldock/signaldock/internal/model"
	"github.com/signaldock/signaldock/internal/mqttpub"
	"github.com/signaldock/signaldock/internal/paths"
	"github.com/signaldock/signaldock/internal/pipeline"
	"github.com/signaldock/signaldock/internal/signalsource"
	"github.com/signaldock/signaldock/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	demo := flag.Bool("demo", false, "seed demo pipelines instead of loading from a persistence collaborator")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if flag.NArg() == 0 {
		printHelp()
		return
	}

	switch flag.Arg(0) {
	case "serve":
		runServe(logger, *configPath, *demo)
	case "version":
		fmt.Println(buildinfo.String())
		for k, v := range buildinfo.BuildInfo() {
			fmt.Printf("  %-12s %s\n", k+":", v)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("SignalDock - local event-routing engine")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve    Start the signal sources, pipeline executor, and WebSocket hub")
	fmt.Println("  version  Show version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func runServe(logger *slog.Logger, configPath string, demo bool) {
	logger.Info("starting signaldockd", "version", buildinfo.Version, "commit", buildinfo.GitCommit)

	cfgPath, err := config.FindConfig(configPath)
	var cfg *config.Config
	if err != nil {
		logger.Warn("no config file found, using defaults", "error", err)
		cfg = config.Default()
	} else {
		cfg, err = config.Load(cfgPath)
		if err != nil {
			logger.Error("failed to load config", "path", cfgPath, "error", err)
			os.Exit(1)
		}
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			logger.Error("invalid log_level in config", "error", err)
			os.Exit(1)
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Error("failed to create data directory", "path", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	// Two independent buses: one feeds the executor, one feeds the hub's
	// "events" channel, so a slow WebSocket client can never cause the
	// executor to miss an event.
	executorBus := eventbus.New(logger)
	hubBus := eventbus.New(logger)

	perm := permissionChecker{cfg: cfg.Permissions}

	vaultGridClient := httpkit.NewClient(
		httpkit.WithRetry(3, time.Second),
		httpkit.WithTimeout(time.Duration(cfg.VaultGrid.TimeoutSec)*time.Second),
		httpkit.WithUserAgent(buildinfo.UserAgent()),
	)
	action.Configure(
		action.WithShellExec(cfg.ShellExec),
		action.WithWorkspace(paths.New(cfg.Workspace.Roots)),
		action.WithVaultGrid(cfg.VaultGrid, vaultGridClient),
	)

	var mqttPub *mqttpub.Publisher
	if cfg.MQTT.BrokerURL != "" {
		mqttPub = mqttpub.New(cfg.MQTT, logger)
		startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := mqttPub.Start(startCtx); err != nil {
			logger.Warn("mqttpub failed to start", "error", err)
		}
		cancel()
		action.Configure(action.WithMQTTPublisher(mqttPub))
	}

	// connwatch tracks reachability of the two outbound action
	// endpoints independently of mqttpub's own reconnect loop and
	// httpkit's own per-call retry — this is background health state
	// surfaced on the "system" hub channel, not a precondition for
	// either action running.
	watchMgr := connwatch.NewManager(logger)
	runCtx, cancelSources := context.WithCancel(context.Background())
	if cfg.VaultGrid.Endpoint != "" {
		watchMgr.Watch(runCtx, connwatch.WatcherConfig{
			Name:   "vaultgrid",
			Probe:  httpReachabilityProbe(vaultGridClient, cfg.VaultGrid.Endpoint),
			Logger: logger,
		})
	}
	if brokerHost := mqttBrokerHostPort(cfg.MQTT.BrokerURL); brokerHost != "" {
		watchMgr.Watch(runCtx, connwatch.WatcherConfig{
			Name:   "pulsemesh",
			Probe:  tcpReachabilityProbe(brokerHost),
			Logger: logger,
		})
	}

	sources := buildSources(cfg, logger, perm)
	for _, src := range sources.All() {
		if err := src.Start(runCtx); err != nil {
			logger.Error("signal source failed to start", "source", src.Name(), "error", err)
			continue
		}
		src.Subscribe(func(e model.SignalEvent) {
			executorBus.Publish(e)
			hubBus.Publish(e)
		})
		logger.Info("signal source started", "source", src.Name(), "type", src.SourceType())
	}

	ex := pipeline.New(logger, perm)
	h := hub.New(logger)
	ex.OnAction(func(n pipeline.ActionNotification) {
		h.Broadcast(hub.ChannelActions, hub.ActionPayload{PipelineID: n.PipelineID, NodeID: n.NodeID, Result: n.Result})
	})
	ex.OnEvent(func(n pipeline.EventNotification) {
		h.Broadcast(hub.ChannelPipelines, hub.PipelineStatus{
			PipelineID: n.PipelineID,
			Status:     map[string]any{"node_id": n.NodeID, "payload": n.Payload},
		})
	})

	eventSub := executorBus.Subscribe(256)
	go func() {
		for e := range eventSub {
			ex.ProcessEvent(runCtx, e)
		}
	}()
	hubSub := hubBus.Subscribe(256)
	go func() {
		for e := range hubSub {
			h.Broadcast(hub.ChannelEvents, e)
		}
	}()

	loadPipelines(ex, demo, logger)

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.Broadcast(hub.ChannelSystem, map[string]any{
					"runtime":     buildinfo.RuntimeInfo(),
					"connections": watchMgr.Status(),
				})
			case <-runCtx.Done():
				return
			}
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port),
		Handler:      withLogging(logger, mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancelSources()
		for _, src := range sources.All() {
			if err := src.Stop(); err != nil {
				logger.Warn("signal source stop error", "source", src.Name(), "error", err)
			}
		}
		for _, id := range ex.Loaded() {
			ex.Unload(id)
		}
		executorBus.Unsubscribe(eventSub)
		hubBus.Unsubscribe(hubSub)
		watchMgr.Stop()
		if mqttPub != nil {
			_ = mqttPub.Stop(context.Background())
		}
		_ = server.Shutdown(context.Background())
	}()

	logger.Info("listening", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// httpReachabilityProbe returns a connwatch.ProbeFunc that issues a HEAD
// request to endpoint — it only cares whether the host answers, not
// whether the request would otherwise succeed, so any response status
// counts as reachable.
func httpReachabilityProbe(client *http.Client, endpoint string) connwatch.ProbeFunc {
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, endpoint, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		return nil
	}
}

// tcpReachabilityProbe returns a connwatch.ProbeFunc that dials hostPort,
// for endpoints (like an MQTT broker) where a protocol-level health
// check isn't worth the complexity — a successful TCP connect is enough
// to report reachability.
func tcpReachabilityProbe(hostPort string) connwatch.ProbeFunc {
	return func(ctx context.Context) error {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", hostPort)
		if err != nil {
			return err
		}
		return conn.Close()
	}
}

// mqttBrokerHostPort extracts the host:port connwatch should dial from
// an MQTT broker URL (e.g. "tcp://broker.local:1883"), defaulting to
// port 1883 when the URL omits one. Returns "" if brokerURL is empty or
// unparseable.
func mqttBrokerHostPort(brokerURL string) string {
	if brokerURL == "" {
		return ""
	}
	u, err := url.Parse(brokerURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	port := u.Port()
	if port == "" {
		port = "1883"
	}
	return net.JoinHostPort(u.Hostname(), port)
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

// permissionChecker is the in-process action.PermissionChecker backed by
// config.PermissionsConfig, used when no external permission
// collaborator is wired.
type permissionChecker struct {
	cfg config.PermissionsConfig
}

func (p permissionChecker) Allowed(tag string) bool {
	switch tag {
	case "shell_execution":
		return p.cfg.ShellExecution
	case "file_operations":
		return p.cfg.FileOperations
	case "process_control":
		return p.cfg.ProcessControl
	case "network_control":
		return p.cfg.NetworkControl
	case "clipboard_access":
		return p.cfg.ClipboardAccess
	default:
		return false
	}
}

func buildSources(cfg *config.Config, logger *slog.Logger, perm permissionChecker) *signalsource.Registry {
	reg := signalsource.NewRegistry()
	reg.Add(signalsource.NewCPUSource(cfg.Sources.CPU, logger))
	reg.Add(signalsource.NewBatterySource(cfg.Sources.Battery, logger))
	reg.Add(signalsource.NewNetworkSource(cfg.Sources.Network, logger))

	if fsSrc, err := signalsource.NewFilesystemSource(cfg.Sources.Filesystem, logger); err != nil {
		logger.Warn("filesystem source unavailable", "error", err)
	} else {
		reg.Add(fsSrc)
	}

	if cfg.Sources.Clipboard.Enabled && perm.Allowed("clipboard_access") {
		reg.Add(signalsource.NewClipboardSource(cfg.Sources.Clipboard, nil, logger))
	}

	return reg
}

func loadPipelines(ex *pipeline.Executor, demo bool, logger *slog.Logger) store.PipelineStore {
	s := store.NewMemStore()
	if demo {
		s.Seed(store.PipelineRecord{
			ID:   "demo-cpu-alert",
			Name: "Notify on sustained high CPU",
			Nodes: []pipeline.NodeSpec{
				{ID: "src", Kind: pipeline.NodeSource, Type: "cpu"},
				{ID: "filter-high", Kind: pipeline.NodeFilter, Type: "boolean", Params: map[string]any{
					"field": "data.cpu_percent", "operator": ">", "value": 85.0,
				}},
				{ID: "notify", Kind: pipeline.NodeAction, Type: "notification", Params: map[string]any{
					"title": "High CPU", "body": "CPU at {data.cpu_percent}%",
				}, Policy: &pipeline.PolicySpec{Type: "cooldown", Params: map[string]any{"seconds": 300.0}}},
			},
			Edges: []pipeline.EdgeSpec{{From: "src", To: "filter-high"}, {From: "filter-high", To: "notify"}},
		})
	}

	records, err := s.ListActive(context.Background())
	if err != nil {
		logger.Error("failed to list active pipelines", "error", err)
		return s
	}
	for _, r := range records {
		if err := ex.Load(r.ID, r.Name, r.Nodes, r.Edges); err != nil {
			logger.Error("failed to load pipeline", "pipeline", r.ID, "error", err)
		}
	}
	return s
}
