// Package event provides the change-notification channel: the dispatcher's
// create, delete, update_key, delete_key and update ops and every completed
// LDAP import publish here after their lock has been released, never while
// it is held. The layout, user-data, password and admin-grant ops do not
// publish.
//
// This follows the Open/Closed principle: the code is open for extension
// (add new message broker implementations) but closed for modification
// (the dispatcher doesn't change when you swap brokers).
//
// IMPLEMENTATION NOTE:
// Currently, only the logging publisher and the in-process broker are
// implemented. When Kafka, NATS, or another external broker is needed:
//
// 1. Create a new file (e.g., kafka.go) implementing the Publisher interface
// 2. Add configuration for your broker
// 3. Wire it up in main.go based on configuration
package event

import (
	"context"
	"log/slog"

	"github.com/ov-vocsdb/vocsdb/internal/domain"
)

// Publisher is the interface for publishing change-notification events.
// Implementations can be swapped without changing dispatcher logic.
type Publisher interface {
	// PublishChange sends an update_db event, optionally carrying a
	// per-loop SIP-whitelist diff.
	PublishChange(ctx context.Context, event domain.ChangeEvent) error

	// PublishLDAPUpdate sends the diff produced by a completed LDAP import.
	PublishLDAPUpdate(ctx context.Context, event domain.LDAPUpdateEvent) error

	// Close cleanly shuts down the publisher.
	Close() error
}

// LoggingPublisher implements Publisher by logging events. Use this for
// development/testing or when you don't need a real broker yet.
type LoggingPublisher struct {
	logger *slog.Logger
}

func NewLoggingPublisher(logger *slog.Logger) *LoggingPublisher {
	return &LoggingPublisher{logger: logger}
}

func (p *LoggingPublisher) PublishChange(ctx context.Context, e domain.ChangeEvent) error {
	p.logger.Info("change published",
		slog.String("event_type", e.Type),
		slog.String("kind", e.Kind.String()),
		slog.String("id", e.ID),
		slog.String("domain", e.Scope.DomainID),
		slog.Int("loop_diffs", len(e.Processing)),
	)
	return nil
}

func (p *LoggingPublisher) PublishLDAPUpdate(ctx context.Context, e domain.LDAPUpdateEvent) error {
	p.logger.Info("ldap update published",
		slog.String("domain", e.DomainID),
		slog.Int("added", len(e.Add)),
		slog.Int("deleted", len(e.Delete)),
	)
	return nil
}

func (p *LoggingPublisher) Close() error {
	return nil
}

// NoopPublisher is a no-op implementation for when event publishing is
// disabled (e.g. in tests exercising only the store).
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) PublishChange(ctx context.Context, e domain.ChangeEvent) error { return nil }

func (p *NoopPublisher) PublishLDAPUpdate(ctx context.Context, e domain.LDAPUpdateEvent) error {
	return nil
}

func (p *NoopPublisher) Close() error { return nil }
