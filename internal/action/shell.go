package action

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/signaldock/signaldock/internal/model"
	"github.com/signaldock/signaldock/internal/template"
)

type shellAction struct {
	command string
	argsTpl []string
	timeout time.Duration
}

func newShellAction(params map[string]any) (Action, error) {
	command, _ := params["command"].(string)
	if command == "" {
		return nil, fmt.Errorf("shell action: command is required")
	}
	var args []string
	if raw, ok := params["args"].([]any); ok {
		for _, a := range raw {
			if s, ok := a.(string); ok {
				args = append(args, s)
			}
		}
	}
	timeoutSec, _ := params["timeout_sec"].(float64)
	return &shellAction{command: command, argsTpl: args, timeout: time.Duration(timeoutSec) * time.Second}, nil
}

func (a *shellAction) ValidateParams(map[string]any) error { return nil }

func (a *shellAction) Metadata() Metadata {
	return Metadata{DisplayName: "shell", RequiresPermission: true, PermissionTag: "shell_execution"}
}

// Execute renders the command and its argument templates against the
// event payload, rejects anything matching a configured denied pattern
// or failing the allowed-prefix list, and runs it with a bounded timeout.
func (a *shellAction) Execute(ctx context.Context, actx Context) (model.ActionResult, error) {
	cfg := current.shellExec
	if !cfg.Enabled {
		return model.ActionResult{}, fmt.Errorf("shell execution disabled in configuration")
	}

	rendered := template.Render(a.command, actx.Payload)
	full := rendered
	args := make([]string, 0, len(a.argsTpl))
	for _, tpl := range a.argsTpl {
		ra := template.Render(tpl, actx.Payload)
		args = append(args, ra)
		full += " " + ra
	}

	for _, denied := range cfg.DeniedPatterns {
		if denied != "" && strings.Contains(full, denied) {
			return model.ActionResult{}, fmt.Errorf("command matches denied pattern %q", denied)
		}
	}
	if len(cfg.AllowedPrefixes) > 0 {
		allowed := false
		for _, prefix := range cfg.AllowedPrefixes {
			if strings.HasPrefix(rendered, prefix) {
				allowed = true
				break
			}
		}
		if !allowed {
			return model.ActionResult{}, fmt.Errorf("command %q not in allowed prefix list", rendered)
		}
	}

	timeout := a.timeout
	if timeout <= 0 {
		timeout = time.Duration(cfg.DefaultTimeoutSec) * time.Second
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, rendered, args...)
	if cfg.WorkingDir != "" {
		cmd.Dir = cfg.WorkingDir
	}
	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)
	if err != nil {
		return model.NewFailureResult("shell command failed", err, elapsed), nil
	}
	return model.NewSuccessResult("shell command completed", map[string]any{"output": string(out)}, elapsed), nil
}
