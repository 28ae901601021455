package midi

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"

	"edostep/audio"
)

// recorder collects sent messages in order.
type recorder struct {
	mu   sync.Mutex
	msgs []gomidi.Message
}

func (r *recorder) send(msg gomidi.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

func (r *recorder) sent() []gomidi.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]gomidi.Message(nil), r.msgs...)
}

func newTestSink(t *testing.T) (*Sink, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := newSink(rec.send)
	t.Cleanup(func() { s.Close() })
	return s, rec
}

func TestNoteAndBend(t *testing.T) {
	t.Parallel()

	note, bend, ok := noteAndBend(440)
	require.True(t, ok)
	assert.Equal(t, uint8(69), note)
	assert.Equal(t, int16(0), bend)

	note, bend, ok = noteAndBend(220)
	require.True(t, ok)
	assert.Equal(t, uint8(57), note)
	assert.Equal(t, int16(0), bend)

	// A third of a semitone above A4.
	note, bend, ok = noteAndBend(440 * math.Pow(2, 1.0/36))
	require.True(t, ok)
	assert.Equal(t, uint8(69), note)
	assert.Equal(t, int16(1365), bend)

	// Step 3 of 19-EDO sits above A#4 and bends down to meet it.
	note, bend, ok = noteAndBend(440 * math.Pow(2, 3.0/19))
	require.True(t, ok)
	assert.Equal(t, uint8(71), note)
	assert.Equal(t, int16(-431), bend)

	// Outside the 0..127 note range.
	_, _, ok = noteAndBend(3)
	assert.False(t, ok)

	_, _, ok = noteAndBend(40000)
	assert.False(t, ok)
}

func TestPlayToneSendsBendOnOff(t *testing.T) {
	t.Parallel()

	s, rec := newTestSink(t)
	s.PlayTone(audio.Sine, 440, 0, 0.05)

	require.Eventually(t, func() bool {
		return len(rec.sent()) == 3
	}, time.Second, time.Millisecond)

	msgs := rec.sent()
	assert.Equal(t, gomidi.Pitchbend(0, 0), msgs[0])
	assert.Equal(t, gomidi.NoteOn(0, 69, velocity), msgs[1])
	assert.Equal(t, gomidi.NoteOff(0, 69), msgs[2])
}

func TestTonesRotateChannels(t *testing.T) {
	t.Parallel()

	s, rec := newTestSink(t)
	for i := 0; i < 3; i++ {
		s.PlayTone(audio.Sine, 440, 0, 0.2)
	}

	require.Eventually(t, func() bool {
		return len(rec.sent()) == 9
	}, 2*time.Second, time.Millisecond)

	want := []gomidi.Message{
		gomidi.Pitchbend(0, 0), gomidi.NoteOn(0, 69, velocity),
		gomidi.Pitchbend(1, 0), gomidi.NoteOn(1, 69, velocity),
		gomidi.Pitchbend(2, 0), gomidi.NoteOn(2, 69, velocity),
		gomidi.NoteOff(0, 69), gomidi.NoteOff(1, 69), gomidi.NoteOff(2, 69),
	}
	assert.Equal(t, want, rec.sent())
}

func TestChannelRotationSkipsPercussion(t *testing.T) {
	t.Parallel()

	s, _ := newTestSink(t)
	wantChannels := []uint8{0, 1, 2, 3, 4, 5, 6, 7, 8, 10, 11, 12, 13, 14, 15, 0}

	s.mu.Lock()
	for i, want := range wantChannels {
		assert.Equal(t, want, s.nextChannel(), "tone %d", i)
	}
	s.mu.Unlock()
}

func TestDispatchOrdersByTime(t *testing.T) {
	t.Parallel()

	s, rec := newTestSink(t)
	s.PlayTone(audio.Sine, 440, 0.06, 0.3) // queued first, due later
	s.PlayTone(audio.Sine, 220, 0, 0.3)

	require.Eventually(t, func() bool {
		return len(rec.sent()) >= 4
	}, 2*time.Second, time.Millisecond)

	msgs := rec.sent()[:4]
	want := []gomidi.Message{
		gomidi.Pitchbend(1, 0), gomidi.NoteOn(1, 57, velocity),
		gomidi.Pitchbend(0, 0), gomidi.NoteOn(0, 69, velocity),
	}
	assert.Equal(t, want, msgs)
}

func TestCloseFlushesNoteOffs(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	s := newSink(rec.send)
	s.PlayTone(audio.Sine, 440, 0, 60)

	require.Eventually(t, func() bool {
		return len(rec.sent()) == 2
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Close())
	msgs := rec.sent()
	require.Len(t, msgs, 3)
	assert.Equal(t, gomidi.NoteOff(0, 69), msgs[2])

	// A closed sink drops tones and a second Close is a no-op.
	s.PlayTone(audio.Sine, 440, 0, 1)
	require.NoError(t, s.Close())
	assert.Len(t, rec.sent(), 3)
}

func TestCloseFlushWaitsForInFlightBatch(t *testing.T) {
	t.Parallel()

	// The first send parks mid-dispatch, after its batch was popped off
	// the queue. Close must wait for that batch to finish, or its note-off
	// flush would reach the wire ahead of the note-on and leave the note
	// hanging on the receiver.
	rec := &recorder{}
	entered := make(chan struct{})
	gate := make(chan struct{})
	var once sync.Once
	s := newSink(func(msg gomidi.Message) error {
		once.Do(func() {
			close(entered)
			<-gate
		})
		return rec.send(msg)
	})

	s.PlayTone(audio.Sine, 440, 0, 60) // due now, note-off queued far out
	<-entered

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	time.Sleep(20 * time.Millisecond) // Close is now waiting on the sink
	close(gate)
	<-done

	want := []gomidi.Message{
		gomidi.Pitchbend(0, 0),
		gomidi.NoteOn(0, 69, velocity),
		gomidi.NoteOff(0, 69),
	}
	assert.Equal(t, want, rec.sent())
}

func TestPlayToneDropsUnplayable(t *testing.T) {
	t.Parallel()

	s, rec := newTestSink(t)
	s.PlayTone(audio.Sine, 440, 1.0, 1.0) // empty window
	s.PlayTone(audio.Sine, 440, 2.0, 1.0) // inverted window
	s.PlayTone(audio.Sine, 0, 0, 1)       // no frequency
	s.PlayTone(audio.Sine, 40000, 0, 1)   // beyond the note range

	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.sent())
}
