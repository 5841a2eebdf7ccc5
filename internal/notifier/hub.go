package notifier

import "sync"

const (
	EventReferralJoined      = "referral_joined"
	EventTaskApproved        = "task_approved"
	EventTaskRejected        = "task_rejected"
	EventWithdrawalProcessed = "withdrawal_processed"
	EventBalanceAdjusted     = "balance_adjusted"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Hub fans events out to the websocket subscribers of a single user.
// Publish never blocks: a subscriber that stopped draining loses events.
type Hub struct {
	mu   sync.RWMutex
	subs map[int64]map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[int64]map[chan Event]struct{}),
	}
}

func (h *Hub) Subscribe(telegramID int64) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.subs[telegramID] == nil {
		h.subs[telegramID] = make(map[chan Event]struct{})
	}
	h.subs[telegramID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs[telegramID], ch)
		if len(h.subs[telegramID]) == 0 {
			delete(h.subs, telegramID)
		}
		h.mu.Unlock()
		close(ch)
	}

	return ch, cancel
}

func (h *Hub) Publish(telegramID int64, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[telegramID] {
		select {
		case ch <- event:
		default:
		}
	}
}
