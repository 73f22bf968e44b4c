package client

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mivanic/parley/internal/domain"
)

func msgAt(t time.Time, text string) domain.Message {
	return domain.Message{
		ID:        uuid.New(),
		Content:   &text,
		CreatedAt: t,
	}
}

func contents(msgs []domain.Message) []string {
	out := make([]string, len(msgs))
	for i := range msgs {
		out[i] = *msgs[i].Content
	}
	return out
}

func TestTimelineAppendsInOrder(t *testing.T) {
	tl := NewTimeline()
	base := time.Now()

	tl.Reset([]domain.Message{msgAt(base, "a"), msgAt(base.Add(time.Second), "b")})
	assert.True(t, tl.Add(msgAt(base.Add(2*time.Second), "c")))

	assert.Equal(t, []string{"a", "b", "c"}, contents(tl.Messages()))
}

func TestTimelineInsertsOutOfOrderDelivery(t *testing.T) {
	tl := NewTimeline()
	base := time.Now()

	tl.Reset([]domain.Message{msgAt(base, "a"), msgAt(base.Add(3*time.Second), "d")})

	// Events after a reconnect can arrive in any order; each lands at
	// its sorted position.
	assert.True(t, tl.Add(msgAt(base.Add(2*time.Second), "c")))
	assert.True(t, tl.Add(msgAt(base.Add(time.Second), "b")))

	assert.Equal(t, []string{"a", "b", "c", "d"}, contents(tl.Messages()))
}

func TestTimelineDuplicateDeliveryIsNoOp(t *testing.T) {
	tl := NewTimeline()
	msg := msgAt(time.Now(), "once")

	require.True(t, tl.Add(msg))
	assert.False(t, tl.Add(msg))
	assert.Equal(t, 1, tl.Len())
}

func TestTimelineEqualTimestampsOrderByID(t *testing.T) {
	tl := NewTimeline()
	at := time.Now()

	a := msgAt(at, "x")
	b := msgAt(at, "y")

	tl.Add(a)
	tl.Add(b)
	first := tl.Messages()

	tl2 := NewTimeline()
	tl2.Add(b)
	tl2.Add(a)
	second := tl2.Messages()

	// Same final order regardless of arrival order.
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[1].ID, second[1].ID)
	assert.True(t, first[0].Before(&first[1]))
}

func TestTimelineResetReplacesSequence(t *testing.T) {
	tl := NewTimeline()
	base := time.Now()

	old := msgAt(base, "old")
	tl.Add(old)

	tl.Reset([]domain.Message{msgAt(base.Add(time.Minute), "new")})
	assert.Equal(t, []string{"new"}, contents(tl.Messages()))

	// Ids from before the reset are not remembered as seen.
	assert.True(t, tl.Add(old))
}
