package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signaldock/signaldock/internal/model"
	"github.com/stretchr/testify/require"
)

type fakeAction struct {
	meta    Metadata
	execute func(ctx context.Context, actx Context) (model.ActionResult, error)
}

func (f *fakeAction) ValidateParams(map[string]any) error { return nil }
func (f *fakeAction) Metadata() Metadata                  { return f.meta }
func (f *fakeAction) Execute(ctx context.Context, actx Context) (model.ActionResult, error) {
	return f.execute(ctx, actx)
}

type fakePermissionChecker struct{ allow bool }

func (f fakePermissionChecker) Allowed(string) bool { return f.allow }

func TestSafeExecute_DeniesOnMissingPermission(t *testing.T) {
	act := &fakeAction{meta: Metadata{DisplayName: "x", RequiresPermission: true, PermissionTag: "shell_execution"}}
	result := SafeExecute(context.Background(), act, Context{}, fakePermissionChecker{allow: false})
	require.Equal(t, model.StatusPermissionDenied, result.Status)
}

func TestSafeExecute_RecoversPanic(t *testing.T) {
	act := &fakeAction{
		meta: Metadata{DisplayName: "x"},
		execute: func(context.Context, Context) (model.ActionResult, error) {
			panic("boom")
		},
	}
	result := SafeExecute(context.Background(), act, Context{}, AllowAll{})
	require.Equal(t, model.StatusFailure, result.Status)
}

func TestSafeExecute_WrapsExecuteError(t *testing.T) {
	act := &fakeAction{
		meta: Metadata{DisplayName: "x"},
		execute: func(context.Context, Context) (model.ActionResult, error) {
			return model.ActionResult{}, errors.New("boom")
		},
	}
	result := SafeExecute(context.Background(), act, Context{}, AllowAll{})
	require.Equal(t, model.StatusFailure, result.Status)
}

func TestSafeExecute_PassesThroughSuccess(t *testing.T) {
	act := &fakeAction{
		meta: Metadata{DisplayName: "x"},
		execute: func(context.Context, Context) (model.ActionResult, error) {
			return model.NewSuccessResult("ok", nil, time.Millisecond), nil
		},
	}
	result := SafeExecute(context.Background(), act, Context{}, AllowAll{})
	require.Equal(t, model.StatusSuccess, result.Status)
}

func TestNew_UnknownActionType(t *testing.T) {
	_, err := New("bogus", nil)
	require.Error(t, err)
}

func TestShellAction_DeniedWhenDisabled(t *testing.T) {
	act, err := New("shell", map[string]any{"command": "echo hi"})
	require.NoError(t, err)
	result := SafeExecute(context.Background(), act, Context{Payload: map[string]any{}}, AllowAll{})
	require.Equal(t, model.StatusFailure, result.Status)
}
