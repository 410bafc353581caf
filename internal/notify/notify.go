// Package notify holds the notification sinks the engine hands lifecycle
// events to. Delivery to a device happens elsewhere.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	backend "github.com/redis/go-redis/v9"
)

// Log writes each notification as a structured log record.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(_ context.Context, n domain.Notification) error {
	l.logger.Info("notification",
		"kind", n.Kind,
		"trip_id", n.TripID,
		"slot_id", n.SlotID,
		"pivot_id", n.PivotID,
	)
	return nil
}

// Nop drops everything.
type Nop struct{}

func (Nop) Notify(context.Context, domain.Notification) error { return nil }

// Recorder keeps every notification in memory.
type Recorder struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (r *Recorder) Notify(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

// Sent returns a copy of the recorded notifications.
func (r *Recorder) Sent() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.sent...)
}

// OfKind returns the recorded notifications of one kind.
func (r *Recorder) OfKind(kind domain.NotificationKind) []domain.Notification {
	var out []domain.Notification
	for _, n := range r.Sent() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Message is the wire form published to Redis.
type Message struct {
	Kind    domain.NotificationKind `json:"kind"`
	TripID  string                  `json:"trip_id"`
	SlotID  string                  `json:"slot_id,omitempty"`
	PivotID string                  `json:"pivot_id,omitempty"`
	UserID  string                  `json:"user_id,omitempty"`
	At      string                  `json:"at"`
	Detail  map[string]any          `json:"detail,omitempty"`
}

// Redis publishes notifications on a per-trip channel so any number of
// delivery workers can subscribe.
type Redis struct {
	client *backend.Client
	prefix string
}

func NewRedis(client *backend.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "waypoint:notify:"
	}
	return &Redis{client: client, prefix: prefix}
}

// Channel returns the pub/sub channel for a trip.
func (r *Redis) Channel(tripID string) string {
	return r.prefix + tripID
}

func (r *Redis) Notify(ctx context.Context, n domain.Notification) error {
	payload, err := json.Marshal(Message{
		Kind:    n.Kind,
		TripID:  n.TripID,
		SlotID:  n.SlotID,
		PivotID: n.PivotID,
		UserID:  n.UserID,
		At:      n.At.UTC().Format(time.RFC3339),
		Detail:  n.Detail,
	})
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}
	if err := r.client.Publish(ctx, r.Channel(n.TripID), payload).Err(); err != nil {
		return fmt.Errorf("publishing notification: %w", err)
	}
	return nil
}

// ReviewList is the Redis list content reports are pushed to for the
// moderation workers.
func (r *Redis) ReviewList() string {
	return r.prefix + "review"
}

type reviewItem struct {
	FlagID         string `json:"flag_id"`
	ActivityNodeID string `json:"activity_node_id"`
	SlotID         string `json:"slot_id"`
	ReporterUserID string `json:"reporter_user_id"`
	Note           string `json:"note,omitempty"`
	At             string `json:"at"`
}

// Enqueue pushes a committed content flag onto the review list.
func (r *Redis) Enqueue(ctx context.Context, f *domain.ContentFlag) error {
	payload, err := json.Marshal(reviewItem{
		FlagID:         f.ID,
		ActivityNodeID: f.ActivityNodeID,
		SlotID:         f.SlotID,
		ReporterUserID: f.ReporterUserID,
		Note:           f.Note,
		At:             f.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("encoding review item: %w", err)
	}
	if err := r.client.RPush(ctx, r.ReviewList(), payload).Err(); err != nil {
		return fmt.Errorf("queueing review item: %w", err)
	}
	return nil
}

// Sink is anything that accepts notifications.
type Sink interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Fanout sends to every sink and joins their errors.
type Fanout []Sink

func (f Fanout) Notify(ctx context.Context, n domain.Notification) error {
	var errs []error
	for _, s := range f {
		if err := s.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
