package event

import (
	"context"
	"sync"

	"github.com/ov-vocsdb/vocsdb/internal/domain"
)

// Broker fans a single producer's change-notification stream out to
// multiple consumers (typically one per connected websocket client).
// Delivery is best-effort: a subscriber whose channel is full has the
// event dropped for it rather than blocking the publisher, matching the
// "subscribers must handle events idempotently" guidance for this topic.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[int]chan domain.ChangeEvent
	ldapSubs    map[int]chan domain.LDAPUpdateEvent
	nextID      int
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: map[int]chan domain.ChangeEvent{},
		ldapSubs:    map[int]chan domain.LDAPUpdateEvent{},
	}
}

// Subscribe registers a new consumer and returns its channel plus an
// unsubscribe func the caller must invoke when done (e.g. on socket close).
func (b *Broker) Subscribe(buffer int) (<-chan domain.ChangeEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan domain.ChangeEvent, buffer)
	b.subscribers[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(c)
		}
	}
}

func (b *Broker) SubscribeLDAP(buffer int) (<-chan domain.LDAPUpdateEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan domain.LDAPUpdateEvent, buffer)
	b.ldapSubs[id] = ch
	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.ldapSubs[id]; ok {
			delete(b.ldapSubs, id)
			close(c)
		}
	}
}

func (b *Broker) PublishChange(ctx context.Context, e domain.ChangeEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

func (b *Broker) PublishLDAPUpdate(ctx context.Context, e domain.LDAPUpdateEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.ldapSubs {
		select {
		case ch <- e:
		default:
		}
	}
	return nil
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
	for id, ch := range b.ldapSubs {
		delete(b.ldapSubs, id)
		close(ch)
	}
	return nil
}

// MultiPublisher fans out to several Publishers, e.g. a LoggingPublisher
// plus a Broker, so the dispatcher has one Publisher to call.
type MultiPublisher struct {
	targets []Publisher
}

func NewMultiPublisher(targets ...Publisher) *MultiPublisher {
	return &MultiPublisher{targets: targets}
}

func (m *MultiPublisher) PublishChange(ctx context.Context, e domain.ChangeEvent) error {
	for _, t := range m.targets {
		if err := t.PublishChange(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiPublisher) PublishLDAPUpdate(ctx context.Context, e domain.LDAPUpdateEvent) error {
	for _, t := range m.targets {
		if err := t.PublishLDAPUpdate(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

func (m *MultiPublisher) Close() error {
	for _, t := range m.targets {
		_ = t.Close()
	}
	return nil
}
