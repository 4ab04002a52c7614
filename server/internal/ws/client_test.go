package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/midistream/midistream/server/internal/midi"
)

type recordingObserver struct {
	broadcast, failed int
}

func (o *recordingObserver) EventBroadcast() { o.broadcast++ }
func (o *recordingObserver) SendFailed()     { o.failed++ }

func decodeNoteOn(note byte) midi.Event {
	return midi.Decode([]byte{0x90, note, 100}, "Keyboard A", time.Unix(0, 0))
}

func TestClient_OfferRefusesWhenOutboxFull(t *testing.T) {
	c := newClient(nil, Config{SendBuffer: 2})

	assert.True(t, c.Offer([]byte("a")))
	assert.True(t, c.Offer([]byte("b")))
	assert.False(t, c.Offer([]byte("c")), "full outbox must refuse, not block")
	assert.Len(t, c.send, 2)
}

func TestClient_OfferAfterClose(t *testing.T) {
	c := newClient(nil, Config{SendBuffer: 4})
	c.Close()
	c.Close()
	assert.False(t, c.Offer([]byte("a")))
}

func TestHub_FullOutboxEvictsClient(t *testing.T) {
	obs := &recordingObserver{}
	h := New(nil, WithObserver(obs), WithSendBuffer(1))

	slow := newClient(nil, h.cfg)
	h.Register(slow)
	fast := newClient(nil, Config{SendBuffer: 8})
	h.Register(fast)

	h.deliver(decodeNoteOn(60))
	h.deliver(decodeNoteOn(62))

	assert.Equal(t, 1, h.Count(), "slow client evicted")
	assert.Len(t, fast.send, 2)
	assert.Equal(t, 1, obs.failed)
	assert.Equal(t, 2, obs.broadcast)

	select {
	case <-slow.done:
	default:
		t.Fatal("evicted client was not closed")
	}
}
