// Package action implements the closed registry of executable actions
// an action node in a pipeline graph may invoke, and the permission/
// timing/panic-recovery wrapper every invocation goes through.
package action

import (
	"context"
	"fmt"
	"time"

	"github.com/signaldock/signaldock/internal/model"
)

// Context carries the data an action executes against: the (possibly
// transformed) event payload flowing through the pipeline, plus the
// action node's own construction params.
type Context struct {
	Payload map[string]any
	Params  map[string]any
}

// Metadata describes one action's permission requirement, surfaced to
// clients over the hub and checked by SafeExecute before Execute runs.
type Metadata struct {
	DisplayName        string
	RequiresPermission bool
	PermissionTag      string
}

// Action is one concrete, side-effecting operation a pipeline can
// trigger. Implementations must treat Execute as cancelable via ctx and
// must not retain actx.Payload past the call.
type Action interface {
	Execute(ctx context.Context, actx Context) (model.ActionResult, error)
	ValidateParams(params map[string]any) error
	Metadata() Metadata
}

// PermissionChecker is the narrow external collaborator actions consult
// before running. The in-process implementation backed by
// config.PermissionsConfig is the default when nothing else is wired;
// callers may substitute any implementation (e.g. one backed by a UI
// prompt) without this package knowing the difference.
type PermissionChecker interface {
	Allowed(tag string) bool
}

// AllowAll is a PermissionChecker that grants every tag — used by tests,
// and the fallback SafeExecute and pipeline.New apply to a nil checker.
type AllowAll struct{}

func (AllowAll) Allowed(string) bool { return true }

// SafeExecute runs action through a permission check, parameter
// validation, and panic recovery, always returning a model.ActionResult
// even when action itself panics — pipeline execution must never crash
// because one action node misbehaves.
func SafeExecute(ctx context.Context, act Action, actx Context, perm PermissionChecker) (result model.ActionResult) {
	meta := act.Metadata()
	start := time.Now()

	if meta.RequiresPermission {
		checker := perm
		if checker == nil {
			checker = AllowAll{}
		}
		if !checker.Allowed(meta.PermissionTag) {
			return model.NewPermissionDeniedResult(fmt.Sprintf("%s requires permission %q", meta.DisplayName, meta.PermissionTag))
		}
	}

	if err := act.ValidateParams(actx.Params); err != nil {
		return model.NewFailureResult(fmt.Sprintf("%s: invalid params", meta.DisplayName), err, time.Since(start))
	}

	defer func() {
		if r := recover(); r != nil {
			result = model.NewFailureResult(fmt.Sprintf("%s panicked", meta.DisplayName), fmt.Errorf("%v", r), time.Since(start))
		}
	}()

	result, err := act.Execute(ctx, actx)
	if err != nil {
		return model.NewFailureResult(fmt.Sprintf("%s failed", meta.DisplayName), err, time.Since(start))
	}
	return result
}

// Factory builds an Action from its construction params (distinct from
// the per-invocation Context.Params passed to Execute — construction
// params configure the action node once, at pipeline load time).
type Factory func(params map[string]any) (Action, error)

var registry = map[string]Factory{}

func register(name string, f Factory) {
	registry[name] = f
}

func init() {
	register("shell", newShellAction)
	register("file_ops", newFileOpsAction)
	register("notification", newNotificationAction)
	register("process", newProcessAction)
	register("network", newNetworkAction)
	register("pulsemesh", newPulsemeshAction)
	register("vaultgrid", newVaultGridAction)
}

// New builds the named action type. An unknown type name is a
// construction-time error, rejecting the whole pipeline load.
func New(actionType string, params map[string]any) (Action, error) {
	factory, ok := registry[actionType]
	if !ok {
		return nil, fmt.Errorf("unknown action type: %q", actionType)
	}
	return factory(params)
}
