package action

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/signaldock/signaldock/internal/model"
	"github.com/signaldock/signaldock/internal/template"
)

// pulsemeshAction publishes a rendered payload to an MQTT topic via the
// shared connection configured with WithMQTTPublisher. No permission is
// required — matching the broker-publish stub this replaces, which also
// required none.
type pulsemeshAction struct {
	topic   string
	payload map[string]any
}

func newPulsemeshAction(params map[string]any) (Action, error) {
	topic, _ := params["topic"].(string)
	if topic == "" {
		return nil, fmt.Errorf("pulsemesh action: topic is required")
	}
	payload, _ := params["payload"].(map[string]any)
	return &pulsemeshAction{topic: topic, payload: payload}, nil
}

func (a *pulsemeshAction) ValidateParams(map[string]any) error { return nil }

func (a *pulsemeshAction) Metadata() Metadata {
	return Metadata{DisplayName: "pulsemesh", RequiresPermission: false}
}

func (a *pulsemeshAction) Execute(ctx context.Context, actx Context) (model.ActionResult, error) {
	start := time.Now()
	if current.mqttPub == nil {
		return model.ActionResult{}, fmt.Errorf("pulsemesh: no mqtt publisher configured")
	}

	rendered := make(map[string]any, len(a.payload))
	for k, v := range a.payload {
		if s, ok := v.(string); ok {
			rendered[k] = template.Render(s, actx.Payload)
		} else {
			rendered[k] = v
		}
	}

	body, err := json.Marshal(rendered)
	if err != nil {
		return model.ActionResult{}, fmt.Errorf("pulsemesh: marshal payload: %w", err)
	}

	if err := current.mqttPub.Publish(ctx, a.topic, body); err != nil {
		return model.NewFailureResult("pulsemesh publish failed", err, time.Since(start)), nil
	}
	return model.NewSuccessResult("pulsemesh published", map[string]any{"topic": a.topic}, time.Since(start)), nil
}
