package action

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"github.com/signaldock/signaldock/internal/model"
	"github.com/signaldock/signaldock/internal/template"
)

// vaultgridAction uploads a file via multipart/form-data POST to a
// configured HTTP endpoint, replacing the random-success stub this
// action is grounded on with a real (retrying, via the shared
// httpkit-built client) HTTP round-trip. No permission is required,
// matching the stub it replaces.
type vaultgridAction struct {
	pathTpl string
	fieldTpl map[string]string
}

func newVaultGridAction(params map[string]any) (Action, error) {
	path, _ := params["file_path"].(string)
	if path == "" {
		return nil, fmt.Errorf("vaultgrid action: file_path is required")
	}
	fields := map[string]string{}
	if raw, ok := params["fields"].(map[string]any); ok {
		for k, v := range raw {
			if s, ok := v.(string); ok {
				fields[k] = s
			}
		}
	}
	return &vaultgridAction{pathTpl: path, fieldTpl: fields}, nil
}

func (a *vaultgridAction) ValidateParams(map[string]any) error { return nil }

func (a *vaultgridAction) Metadata() Metadata {
	return Metadata{DisplayName: "vaultgrid", RequiresPermission: false}
}

func (a *vaultgridAction) Execute(ctx context.Context, actx Context) (model.ActionResult, error) {
	start := time.Now()
	if current.vaultGrid.Endpoint == "" {
		return model.ActionResult{}, fmt.Errorf("vaultgrid: no endpoint configured")
	}

	path := template.Render(a.pathTpl, actx.Payload)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, tpl := range a.fieldTpl {
		if err := writer.WriteField(k, template.Render(tpl, actx.Payload)); err != nil {
			return model.ActionResult{}, fmt.Errorf("vaultgrid: write field %s: %w", k, err)
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return model.NewFailureResult("vaultgrid: read file failed", err, time.Since(start)), nil
	}
	part, err := writer.CreateFormFile("file", path)
	if err != nil {
		return model.ActionResult{}, fmt.Errorf("vaultgrid: create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return model.ActionResult{}, fmt.Errorf("vaultgrid: write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return model.ActionResult{}, fmt.Errorf("vaultgrid: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, current.vaultGrid.Endpoint, &body)
	if err != nil {
		return model.ActionResult{}, fmt.Errorf("vaultgrid: build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if current.vaultGrid.AuthToken != "" {
		req.Header.Set("Authorization", "Bearer "+current.vaultGrid.AuthToken)
	}

	resp, err := current.httpClient.Do(req)
	if err != nil {
		return model.NewFailureResult("vaultgrid upload failed", err, time.Since(start)), nil
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return model.NewFailureResult("vaultgrid upload rejected", fmt.Errorf("status %d", resp.StatusCode), time.Since(start)), nil
	}
	return model.NewSuccessResult("vaultgrid upload completed", map[string]any{"status": resp.StatusCode}, time.Since(start)), nil
}
