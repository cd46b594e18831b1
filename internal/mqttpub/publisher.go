// Package mqttpub wires a minimal autopaho/paho MQTT connection for the
// pulsemesh action: connect once, publish fire-and-forget messages,
// reconnect transparently. It carries none of the Home Assistant
// discovery or sensor-state machinery a full MQTT bridge would need —
// pulsemesh only needs a publish round-trip to a broker.
package mqttpub

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/signaldock/signaldock/internal/config"
)

// Publisher manages a single MQTT broker connection and publishes
// messages under a configured topic root.
type Publisher struct {
	cfg    config.MQTTConfig
	logger *slog.Logger
	cm     *autopaho.ConnectionManager
}

// New creates a Publisher but does not connect. Call Start to begin the
// connection.
func New(cfg config.MQTTConfig, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{cfg: cfg, logger: logger}
}

// Start connects to the configured broker. It blocks until the initial
// connection succeeds, a 30s timeout elapses (autopaho then keeps
// retrying in the background), or ctx is cancelled.
func (p *Publisher) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(p.cfg.BrokerURL)
	if err != nil {
		return fmt.Errorf("parse mqtt broker url: %w", err)
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls: []*url.URL{brokerURL},
		KeepAlive:  30,
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			p.logger.Info("mqttpub connected", "broker", p.cfg.BrokerURL)
		},
		OnConnectError: func(err error) {
			p.logger.Warn("mqttpub connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: p.cfg.ClientID,
		},
	}
	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqttpub connect: %w", err)
	}
	p.cm = cm

	connCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		p.logger.Warn("mqttpub initial connection timed out, will retry in background", "error", err)
	}
	return nil
}

// Stop disconnects from the broker. Safe to call if Start was never
// called or failed.
func (p *Publisher) Stop(ctx context.Context) error {
	if p.cm == nil {
		return nil
	}
	return p.cm.Disconnect(ctx)
}

// Publish sends payload to topicSuffix under the configured topic root
// (cfg.TopicRoot + "/" + topicSuffix), QoS 0, not retained.
func (p *Publisher) Publish(ctx context.Context, topicSuffix string, payload []byte) error {
	if p.cm == nil {
		return fmt.Errorf("mqttpub: not connected")
	}
	topic := p.cfg.TopicRoot + "/" + topicSuffix
	_, err := p.cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: payload,
		QoS:     0,
	})
	if err != nil {
		return fmt.Errorf("mqttpub publish %s: %w", topic, err)
	}
	return nil
}
