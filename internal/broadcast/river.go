package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// DeliveryJobArgs carries one event to a webhook.
type DeliveryJobArgs struct {
	WebhookURL string `json:"webhook_url"`
	Event      Event  `json:"event"`
}

func (DeliveryJobArgs) Kind() string { return "room_event_delivery" }

// JobInserter is the part of river.Client used to enqueue deliveries.
type JobInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// RiverPublisher enqueues a delivery job per event so retries survive restarts.
type RiverPublisher struct {
	inserter   JobInserter
	webhookURL string
}

func NewRiverPublisher(inserter JobInserter, webhookURL string) *RiverPublisher {
	return &RiverPublisher{inserter: inserter, webhookURL: webhookURL}
}

func (p *RiverPublisher) Publish(ctx context.Context, ev Event) error {
	_, err := p.inserter.Insert(ctx, DeliveryJobArgs{WebhookURL: p.webhookURL, Event: ev}, nil)
	if err != nil {
		return fmt.Errorf("enqueue %s delivery: %w", ev.Kind, err)
	}
	return nil
}

// DeliveryWorker POSTs events to the configured webhook.
type DeliveryWorker struct {
	river.WorkerDefaults[DeliveryJobArgs]
	httpClient *http.Client
}

func NewDeliveryWorker() *DeliveryWorker {
	return &DeliveryWorker{httpClient: &http.Client{Timeout: 10 * time.Second}}
}

func (w *DeliveryWorker) Work(ctx context.Context, job *river.Job[DeliveryJobArgs]) error {
	args := job.Args

	body, err := json.Marshal(args.Event)
	if err != nil {
		return river.JobCancel(fmt.Errorf("marshal event: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, args.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return river.JobCancel(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Kind", args.Event.Kind)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error calling broadcast webhook: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		// The receiver rejected the event; retrying will not help.
		return river.JobCancel(fmt.Errorf("broadcast webhook returned %d", resp.StatusCode))
	default:
		return fmt.Errorf("broadcast webhook returned %d", resp.StatusCode)
	}
}
