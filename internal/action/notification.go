package action

import (
	"context"
	"log/slog"
	"os/exec"
	"runtime"
	"time"

	"github.com/signaldock/signaldock/internal/model"
	"github.com/signaldock/signaldock/internal/template"
)

// Notifier delivers a desktop notification. The default implementation
// shells out to notify-send (Linux) or osascript (Darwin) and falls
// back to a structured log line when neither binary is usable.
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

type logOnlyNotifier struct{}

func (logOnlyNotifier) Notify(_ context.Context, title, body string) error {
	slog.Info("notification", "title", title, "body", body)
	return nil
}

// execNotifier shells out to the platform's native notifier binary.
type execNotifier struct{}

func (execNotifier) Notify(ctx context.Context, title, body string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := `display notification "` + body + `" with title "` + title + `"`
		cmd = exec.CommandContext(ctx, "osascript", "-e", script)
	default:
		cmd = exec.CommandContext(ctx, "notify-send", title, body)
	}
	if err := cmd.Run(); err != nil {
		return logOnlyNotifier{}.Notify(ctx, title, body)
	}
	return nil
}

type notificationAction struct {
	titleTpl string
	bodyTpl  string
}

func newNotificationAction(params map[string]any) (Action, error) {
	title, _ := params["title"].(string)
	body, _ := params["body"].(string)
	if body == "" {
		body, _ = params["message"].(string)
	}
	return &notificationAction{titleTpl: title, bodyTpl: body}, nil
}

func (a *notificationAction) ValidateParams(map[string]any) error { return nil }

func (a *notificationAction) Metadata() Metadata {
	return Metadata{DisplayName: "notification", RequiresPermission: false}
}

func (a *notificationAction) Execute(ctx context.Context, actx Context) (model.ActionResult, error) {
	start := time.Now()
	title := template.Render(a.titleTpl, actx.Payload)
	body := template.Render(a.bodyTpl, actx.Payload)
	if err := current.notifier.Notify(ctx, title, body); err != nil {
		return model.NewFailureResult("notification failed", err, time.Since(start)), nil
	}
	return model.NewSuccessResult("notification sent", map[string]any{"title": title, "body": body}, time.Since(start)), nil
}
