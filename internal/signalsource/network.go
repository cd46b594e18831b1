package signalsource

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"time"

	gopsutilnet "github.com/shirou/gopsutil/v4/net"

	"github.com/signaldock/signaldock/internal/config"
	"github.com/signaldock/signaldock/internal/model"
)

// NetworkSource samples host network reachability and the active
// interface set via gopsutil, emitting on a reachability flip or a
// change in which interfaces are up.
type NetworkSource struct {
	*baseSource
	probeHost     string
	ignoredIfaces map[string]bool

	lastReachable  bool
	lastInterfaces []string
	haveSample     bool
}

// NewNetworkSource constructs a network signal source named "network".
func NewNetworkSource(cfg config.NetworkSourceConfig, logger *slog.Logger) *NetworkSource {
	ignored := make(map[string]bool, len(cfg.IgnoredIfaces))
	for _, name := range cfg.IgnoredIfaces {
		ignored[name] = true
	}
	s := &NetworkSource{probeHost: cfg.ProbeHost, ignoredIfaces: ignored}
	s.baseSource = newBaseSource("network", "network", time.Duration(cfg.PollIntervalSec)*time.Second, s.poll, logger)
	return s
}

func (s *NetworkSource) poll(ctx context.Context) ([]model.SignalEvent, error) {
	reachable := s.probe(ctx)

	stats, err := gopsutilnet.InterfacesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("network source: list interfaces: %w", err)
	}

	var up []string
	for _, iface := range stats {
		if s.ignoredIfaces[iface.Name] {
			continue
		}
		if slices.Contains(iface.Flags, "up") && !slices.Contains(iface.Flags, "loopback") {
			up = append(up, iface.Name)
		}
	}
	slices.Sort(up)

	reachFlipped := s.haveSample && reachable != s.lastReachable
	ifacesChanged := s.haveSample && !slices.Equal(up, s.lastInterfaces)
	first := !s.haveSample

	s.lastReachable, s.lastInterfaces, s.haveSample = reachable, up, true

	if !first && !reachFlipped && !ifacesChanged {
		return nil, nil
	}

	eventType := model.EventStateChanged
	if first {
		eventType = model.EventValueChanged
	}

	data := map[string]any{
		"reachable":  reachable,
		"interfaces": up,
	}
	return []model.SignalEvent{s.emit(eventType, data, nil)}, nil
}

func (s *NetworkSource) probe(ctx context.Context) bool {
	d := net.Dialer{Timeout: 3 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", s.probeHost)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// ConfigSchema documents the tunable parameters this source accepts.
func (s *NetworkSource) ConfigSchema() map[string]ParamSchema {
	return map[string]ParamSchema{
		"poll_interval_sec":  {Type: "integer", Description: "seconds between samples", Default: 10},
		"probe_host":         {Type: "string", Description: "host:port dialed to test reachability", Default: "1.1.1.1:443"},
		"ignored_interfaces": {Type: "array", Description: "interface names excluded from change detection"},
	}
}
