package client

import (
	"sort"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
)

// Timeline is the in-memory ordered message sequence for the selected
// conversation. Realtime inserts go in at their sorted position by
// (created_at, id) rather than being blindly appended, so a burst of
// events delivered out of order after a reconnect cannot corrupt the
// display order.
type Timeline struct {
	msgs []domain.Message
	seen map[uuid.UUID]struct{}
}

func NewTimeline() *Timeline {
	return &Timeline{seen: make(map[uuid.UUID]struct{})}
}

// Reset replaces the sequence with a freshly loaded history. The load
// is already sorted by the store; Reset trusts that order.
func (t *Timeline) Reset(msgs []domain.Message) {
	t.msgs = append(t.msgs[:0], msgs...)
	t.seen = make(map[uuid.UUID]struct{}, len(msgs))
	for i := range msgs {
		t.seen[msgs[i].ID] = struct{}{}
	}
}

// Add inserts one realtime message at its sorted position. Duplicate
// delivery (same id) is a no-op; Add reports whether the sequence
// changed.
func (t *Timeline) Add(msg domain.Message) bool {
	if _, dup := t.seen[msg.ID]; dup {
		return false
	}
	pos := sort.Search(len(t.msgs), func(i int) bool {
		return msg.Before(&t.msgs[i])
	})
	t.msgs = append(t.msgs, domain.Message{})
	copy(t.msgs[pos+1:], t.msgs[pos:])
	t.msgs[pos] = msg
	t.seen[msg.ID] = struct{}{}
	return true
}

// Messages returns a copy of the current sequence.
func (t *Timeline) Messages() []domain.Message {
	out := make([]domain.Message, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Timeline) Len() int {
	return len(t.msgs)
}
