package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"garage/internal/amqp"
	"garage/internal/core"
	"garage/internal/engine"
	"garage/internal/store"
)

// ReminderScanner publishes an alert for every car reminder that is expired
// or due within a month. Each project/kind pair alerts at most once a day
// per scanner.
type ReminderScanner struct {
	store     store.CarLister
	publisher AlertPublisher
	now       func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

func NewReminderScanner(st store.CarLister, publisher AlertPublisher) *ReminderScanner {
	return &ReminderScanner{
		store:     st,
		publisher: publisher,
		now:       time.Now,
		sent:      make(map[string]time.Time),
	}
}

// Scan checks every car project once and returns how many alerts were
// published.
func (s *ReminderScanner) Scan(ctx context.Context) (int, error) {
	projects, err := s.store.ListCarProjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("list car projects: %w", err)
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune(now)

	published := 0
	for _, p := range projects {
		for _, r := range engine.Reminders(p, now) {
			if !r.Status.NeedsAttention() {
				continue
			}
			msg := newAlert(p, r, now)
			key := msg.Key()
			if _, done := s.sent[key]; done {
				continue
			}
			if s.publisher == nil {
				slog.WarnContext(ctx, "AMQP client not available, skipping reminder alert",
					"project_id", p.ID, "kind", r.Kind)
				continue
			}
			if err := s.publisher.PublishReminderAlert(ctx, msg); err != nil {
				if ctx.Err() != nil {
					return published, ctx.Err()
				}
				slog.ErrorContext(ctx, "Failed to publish reminder alert",
					"project_id", p.ID, "kind", r.Kind, "error", err)
				continue
			}
			s.sent[key] = now
			published++
		}
	}

	if published > 0 {
		slog.InfoContext(ctx, "Reminder alerts published", "count", published, "projects", len(projects))
	}
	return published, nil
}

// Run scans immediately and then on every tick until ctx is cancelled.
func (s *ReminderScanner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Scan(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "Reminder scan failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// prune forgets alerts sent on earlier days.
func (s *ReminderScanner) prune(now time.Time) {
	y, m, d := now.Date()
	for key, at := range s.sent {
		ay, am, ad := at.Date()
		if ay != y || am != m || ad != d {
			delete(s.sent, key)
		}
	}
}

func newAlert(p core.Project, r engine.Reminder, now time.Time) *amqp.ReminderAlertMessage {
	return &amqp.ReminderAlertMessage{
		Type:        amqp.TypeReminderAlert,
		UserID:      p.UserID,
		ProjectID:   p.ID,
		ProjectName: p.Name,
		Kind:        string(r.Kind),
		Date:        r.Date.String(),
		Status:      string(r.Status),
		Timestamp:   now,
	}
}
