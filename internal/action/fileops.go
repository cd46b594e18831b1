package action

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/signaldock/signaldock/internal/model"
	"github.com/signaldock/signaldock/internal/template"
)

type fileOpsAction struct {
	op       string // read, write, copy, move, delete
	pathTpl  string
	destTpl  string
	contentT string
}

func newFileOpsAction(params map[string]any) (Action, error) {
	op, _ := params["operation"].(string)
	switch op {
	case "read", "write", "copy", "move", "delete":
	default:
		return nil, fmt.Errorf("file_ops action: unknown operation %q", op)
	}
	path, _ := params["path"].(string)
	if path == "" {
		return nil, fmt.Errorf("file_ops action: path is required")
	}
	dest, _ := params["destination"].(string)
	if (op == "copy" || op == "move") && dest == "" {
		return nil, fmt.Errorf("file_ops action: destination is required for %s", op)
	}
	content, _ := params["content"].(string)
	return &fileOpsAction{op: op, pathTpl: path, destTpl: dest, contentT: content}, nil
}

func (a *fileOpsAction) ValidateParams(map[string]any) error { return nil }

func (a *fileOpsAction) Metadata() Metadata {
	return Metadata{DisplayName: "file_ops", RequiresPermission: true, PermissionTag: "file_operations"}
}

// Execute resolves the configured path (and destination, for copy/move)
// through the shared workspace resolver before touching the filesystem.
// A rendered path or destination that does not start with a configured
// named-root prefix is rejected.
func (a *fileOpsAction) Execute(_ context.Context, actx Context) (model.ActionResult, error) {
	start := time.Now()
	rawPath := template.Render(a.pathTpl, actx.Payload)
	if !current.workspace.HasPrefix(rawPath) {
		return model.ActionResult{}, fmt.Errorf("path %q is outside every configured workspace root", rawPath)
	}
	path, err := current.workspace.Resolve(rawPath)
	if err != nil {
		return model.ActionResult{}, fmt.Errorf("resolve path: %w", err)
	}

	switch a.op {
	case "read":
		data, err := os.ReadFile(path)
		if err != nil {
			return model.NewFailureResult("read failed", err, time.Since(start)), nil
		}
		return model.NewSuccessResult("file read", map[string]any{"content": string(data)}, time.Since(start)), nil

	case "write":
		content := template.Render(a.contentT, actx.Payload)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return model.NewFailureResult("write failed", err, time.Since(start)), nil
		}
		return model.NewSuccessResult("file written", map[string]any{"bytes": len(content)}, time.Since(start)), nil

	case "delete":
		if err := os.Remove(path); err != nil {
			return model.NewFailureResult("delete failed", err, time.Since(start)), nil
		}
		return model.NewSuccessResult("file deleted", nil, time.Since(start)), nil

	case "copy", "move":
		rawDest := template.Render(a.destTpl, actx.Payload)
		if !current.workspace.HasPrefix(rawDest) {
			return model.ActionResult{}, fmt.Errorf("destination %q is outside every configured workspace root", rawDest)
		}
		dest, err := current.workspace.Resolve(rawDest)
		if err != nil {
			return model.ActionResult{}, fmt.Errorf("resolve destination: %w", err)
		}
		if a.op == "move" {
			if err := os.Rename(path, dest); err != nil {
				return model.NewFailureResult("move failed", err, time.Since(start)), nil
			}
			return model.NewSuccessResult("file moved", map[string]any{"destination": dest}, time.Since(start)), nil
		}
		if err := copyFile(path, dest); err != nil {
			return model.NewFailureResult("copy failed", err, time.Since(start)), nil
		}
		return model.NewSuccessResult("file copied", map[string]any{"destination": dest}, time.Since(start)), nil
	}

	return model.ActionResult{}, fmt.Errorf("unreachable operation %q", a.op)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
