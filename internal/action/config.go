package action

import (
	"net/http"

	"github.com/signaldock/signaldock/internal/config"
	"github.com/signaldock/signaldock/internal/mqttpub"
	"github.com/signaldock/signaldock/internal/paths"
)

// globalConfig bundles the collaborators concrete actions need at
// construction time but that aren't part of a single node's own
// params (a shared MQTT publisher, HTTP client, path resolver, …).
// cmd/signaldockd calls Configure once at startup, before loading any
// pipeline; tests call it with a minimal stub config.
type globalConfig struct {
	shellExec   config.ShellExecConfig
	workspace   *paths.Resolver
	mqttPub     *mqttpub.Publisher
	vaultGrid   config.VaultGridConfig
	httpClient  *http.Client
	notifier    Notifier
	process     ProcessController
	network     NetworkController
}

var current = globalConfig{
	httpClient: http.DefaultClient,
	notifier:   execNotifier{},
	process:    osProcessController{},
	network:    execNetworkController{},
}

// Configure installs the shared collaborators every subsequently
// constructed action reads from. Call once at startup.
func Configure(opts ...ConfigOption) {
	for _, opt := range opts {
		opt(&current)
	}
}

// ConfigOption sets one field of the shared action configuration.
type ConfigOption func(*globalConfig)

func WithShellExec(cfg config.ShellExecConfig) ConfigOption {
	return func(c *globalConfig) { c.shellExec = cfg }
}

func WithWorkspace(resolver *paths.Resolver) ConfigOption {
	return func(c *globalConfig) { c.workspace = resolver }
}

func WithMQTTPublisher(pub *mqttpub.Publisher) ConfigOption {
	return func(c *globalConfig) { c.mqttPub = pub }
}

func WithVaultGrid(cfg config.VaultGridConfig, client *http.Client) ConfigOption {
	return func(c *globalConfig) {
		c.vaultGrid = cfg
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithNotifier(n Notifier) ConfigOption {
	return func(c *globalConfig) { c.notifier = n }
}

func WithProcessController(p ProcessController) ConfigOption {
	return func(c *globalConfig) { c.process = p }
}

func WithNetworkController(n NetworkController) ConfigOption {
	return func(c *globalConfig) { c.network = n }
}
