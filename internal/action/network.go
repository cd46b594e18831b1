package action

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/signaldock/signaldock/internal/model"
	"github.com/signaldock/signaldock/internal/template"
)

// NetworkController toggles a network interface's administrative state.
type NetworkController interface {
	SetInterfaceState(ctx context.Context, iface string, up bool) error
}

type execNetworkController struct{}

func (execNetworkController) SetInterfaceState(ctx context.Context, iface string, up bool) error {
	state := "down"
	if up {
		state = "up"
	}
	var cmd *exec.Cmd
	if runtime.GOOS == "linux" {
		cmd = exec.CommandContext(ctx, "ip", "link", "set", iface, state)
	} else {
		cmd = exec.CommandContext(ctx, "ifconfig", iface, state)
	}
	return cmd.Run()
}

type networkAction struct {
	ifaceTpl string
	up       bool
}

func newNetworkAction(params map[string]any) (Action, error) {
	iface, _ := params["interface"].(string)
	if iface == "" {
		return nil, fmt.Errorf("network action: interface is required")
	}
	state, _ := params["state"].(string)
	switch state {
	case "up", "down":
	default:
		return nil, fmt.Errorf("network action: state must be \"up\" or \"down\", got %q", state)
	}
	return &networkAction{ifaceTpl: iface, up: state == "up"}, nil
}

func (a *networkAction) ValidateParams(map[string]any) error { return nil }

func (a *networkAction) Metadata() Metadata {
	return Metadata{DisplayName: "network", RequiresPermission: true, PermissionTag: "network_control"}
}

func (a *networkAction) Execute(ctx context.Context, actx Context) (model.ActionResult, error) {
	start := time.Now()
	iface := template.Render(a.ifaceTpl, actx.Payload)
	if err := current.network.SetInterfaceState(ctx, iface, a.up); err != nil {
		return model.NewFailureResult("network state change failed", err, time.Since(start)), nil
	}
	return model.NewSuccessResult("network state changed", map[string]any{"interface": iface, "up": a.up}, time.Since(start)), nil
}
