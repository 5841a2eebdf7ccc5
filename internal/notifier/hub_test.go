package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHub_PublishReachesOnlyOwnSubscribers(t *testing.T) {
	hub := NewHub()

	events, cancel := hub.Subscribe(1)
	defer cancel()

	otherEvents, otherCancel := hub.Subscribe(2)
	defer otherCancel()

	hub.Publish(1, Event{Type: EventTaskApproved})

	select {
	case event := <-events:
		assert.Equal(t, EventTaskApproved, event.Type)
	default:
		t.Fatal("expected an event for subscriber 1")
	}

	select {
	case event := <-otherEvents:
		t.Fatalf("subscriber 2 should not receive events for user 1, got %v", event)
	default:
	}
}

func TestHub_PublishWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := NewHub()
	hub.Publish(42, Event{Type: EventBalanceAdjusted})
}

func TestHub_SlowSubscriberLosesEventsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()

	events, cancel := hub.Subscribe(1)
	defer cancel()

	for i := 0; i < 100; i++ {
		hub.Publish(1, Event{Type: EventReferralJoined})
	}

	received := 0
	for {
		select {
		case <-events:
			received++
			continue
		default:
		}
		break
	}

	assert.Equal(t, cap(events), received)
}
