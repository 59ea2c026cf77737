package event

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ov-vocsdb/vocsdb/internal/domain"
)

func TestBrokerDeliversChangeToSubscriber(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	require.NoError(t, b.PublishChange(context.Background(), domain.NewUpdateDBEvent(domain.KindUser, "alice", domain.Scope{DomainID: "acme"}, nil)))

	select {
	case e := <-ch:
		assert.Equal(t, "alice", e.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBrokerDropsEventsForFullSubscriberChannel(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	e := domain.NewUpdateDBEvent(domain.KindUser, "alice", domain.Scope{DomainID: "acme"}, nil)
	require.NoError(t, b.PublishChange(context.Background(), e))
	require.NoError(t, b.PublishChange(context.Background(), e))

	assert.Len(t, ch, 1)
}

func TestBrokerUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroker()
	ch, unsub := b.Subscribe(1)
	unsub()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestBrokerLDAPSubscribersAreIndependentOfChangeSubscribers(t *testing.T) {
	b := NewBroker()
	changeCh, unsubChange := b.Subscribe(1)
	defer unsubChange()
	ldapCh, unsubLDAP := b.SubscribeLDAP(1)
	defer unsubLDAP()

	require.NoError(t, b.PublishLDAPUpdate(context.Background(), domain.NewLDAPUpdateEvent("acme", nil, nil)))

	select {
	case <-ldapCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for ldap event")
	}
	assert.Empty(t, changeCh)
}

func TestMultiPublisherFansOutToAllTargets(t *testing.T) {
	a := NewLoggingPublisher(slog.Default())
	b := NewBroker()
	ch, unsub := b.Subscribe(1)
	defer unsub()

	m := NewMultiPublisher(a, b)
	require.NoError(t, m.PublishChange(context.Background(), domain.NewUpdateDBEvent(domain.KindUser, "alice", domain.Scope{DomainID: "acme"}, nil)))

	select {
	case e := <-ch:
		assert.Equal(t, "alice", e.ID)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for broker delivery")
	}
}
