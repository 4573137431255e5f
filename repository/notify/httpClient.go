package notifyrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"bookswap/model"
	"bookswap/util/httpx"

	"github.com/google/uuid"
)

type httpRepo struct {
	webhookURL string
	client     *http.Client
}

func NewHTTP(webhookURL string) Repo {
	return &httpRepo{webhookURL: webhookURL, client: httpx.Client()}
}

type envelope struct {
	DeliveryID string          `json:"delivery_id"`
	Type       model.EventKind `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Event      model.SwapEvent `json:"event"`
}

func (r *httpRepo) Deliver(ctx context.Context, ev model.SwapEvent) error {
	env := envelope{
		DeliveryID: uuid.NewString(),
		Type:       ev.Kind(),
		OccurredAt: time.Now().UTC(),
		Event:      ev,
	}
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.webhookURL, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-ID", env.DeliveryID)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify webhook %s: %s", ev.Kind(), resp.Status)
	}
	return nil
}
