package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"opsdesk/internal/config"
	"opsdesk/internal/domain"
	"opsdesk/internal/engine"
	"opsdesk/internal/logging"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultWebhookBatch    = 100
)

// WebhookDispatcher pushes new events to the configured webhooks so the
// dashboard can refresh without polling the API.
type WebhookDispatcher struct {
	engine   engine.Engine
	webhooks []config.Webhook
	client   *http.Client
	log      logrus.FieldLogger
	interval time.Duration
	mu       sync.Mutex
	cursors  map[int]int64
}

func NewWebhookDispatcher(e engine.Engine, hooks []config.Webhook, log logrus.FieldLogger) *WebhookDispatcher {
	if log == nil {
		log = logging.Discard()
	}
	return &WebhookDispatcher{
		engine:   e,
		webhooks: hooks,
		client:   &http.Client{Timeout: defaultWebhookTimeout},
		log:      log.WithField("component", "webhooks"),
		interval: defaultWebhookInterval,
		cursors:  make(map[int]int64),
	}
}

// Run delivers events until ctx is done. Delivery starts after the events
// present at startup.
func (d *WebhookDispatcher) Run(ctx context.Context) {
	if len(d.webhooks) == 0 {
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		d.DispatchAll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *WebhookDispatcher) DispatchAll(ctx context.Context) {
	for i, hook := range d.webhooks {
		if strings.TrimSpace(hook.URL) == "" {
			continue
		}
		d.dispatchWebhook(ctx, i, hook)
	}
}

func (d *WebhookDispatcher) dispatchWebhook(ctx context.Context, idx int, hook config.Webhook) {
	cursor := d.cursorFor(ctx, idx)
	events, err := d.engine.Repo.EventsAfter(ctx, defaultWebhookBatch, cursor)
	if err != nil {
		d.log.WithError(err).Warn("fetch events failed")
		return
	}
	filter := newEventFilter(hook.Events)
	for _, evt := range events {
		if !filter.match(evt.Type) {
			d.setCursor(idx, evt.ID)
			continue
		}
		if err := d.postEvent(ctx, hook, evt); err != nil {
			d.log.WithError(err).WithFields(logrus.Fields{"url": hook.URL, "event_id": evt.ID}).Warn("delivery failed")
			return
		}
		d.setCursor(idx, evt.ID)
	}
}

func (d *WebhookDispatcher) cursorFor(ctx context.Context, idx int) int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if cur, ok := d.cursors[idx]; ok {
		return cur
	}
	cur, err := d.engine.Repo.LatestEventID(ctx)
	if err != nil {
		d.log.WithError(err).Warn("init cursor failed")
		cur = 0
	}
	d.cursors[idx] = cur
	return cur
}

func (d *WebhookDispatcher) setCursor(idx int, value int64) {
	d.mu.Lock()
	d.cursors[idx] = value
	d.mu.Unlock()
}

type webhookEvent struct {
	ID         int64           `json:"id"`
	Type       string          `json:"type"`
	EntityKind string          `json:"entity_kind"`
	EntityID   string          `json:"entity_id,omitempty"`
	ActorID    string          `json:"actor_id"`
	TS         string          `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
	PayloadRaw string          `json:"payload_raw,omitempty"`
}

func (d *WebhookDispatcher) postEvent(ctx context.Context, hook config.Webhook, evt domain.Event) error {
	payload := json.RawMessage([]byte("{}"))
	var raw string
	if evt.Payload != "" {
		if json.Valid([]byte(evt.Payload)) {
			payload = json.RawMessage([]byte(evt.Payload))
		} else {
			raw = evt.Payload
		}
	}
	data, err := json.Marshal(webhookEvent{
		ID:         evt.ID,
		Type:       evt.Type,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		ActorID:    evt.ActorID,
		TS:         evt.TS,
		Payload:    payload,
		PayloadRaw: raw,
	})
	if err != nil {
		return err
	}
	client := d.client
	if hook.TimeoutSeconds > 0 {
		client = &http.Client{Timeout: time.Duration(hook.TimeoutSeconds) * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Opsdesk-Event", evt.Type)
	req.Header.Set("X-Opsdesk-Delivery", fmt.Sprintf("%d", evt.ID))
	if strings.TrimSpace(hook.Secret) != "" {
		req.Header.Set("X-Opsdesk-Secret", hook.Secret)
	}
	res, err := client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

type eventFilter struct {
	all bool
	set map[string]struct{}
}

func newEventFilter(events []string) eventFilter {
	set := make(map[string]struct{}, len(events))
	for _, evt := range events {
		if key := strings.TrimSpace(evt); key != "" {
			set[key] = struct{}{}
		}
	}
	if len(set) == 0 {
		return eventFilter{all: true}
	}
	return eventFilter{set: set}
}

func (f eventFilter) match(evt string) bool {
	if f.all {
		return true
	}
	_, ok := f.set[evt]
	return ok
}
