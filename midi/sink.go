package midi

import (
	"container/heap"
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"edostep/audio"
	"edostep/debug"
)

const (
	velocity = 100
	// bendPerSemitone assumes the receiver's bend range is the common
	// +/-2 semitones, so 8192 covers 2 semitones.
	bendPerSemitone = 4096
)

// event is a timed batch of messages. Batching keeps a pitch bend and its
// note-on adjacent on the wire.
type event struct {
	at   float64 // sink seconds
	seq  int64   // tiebreak: earlier push dispatches first
	off  bool    // note-off batch, flushed on Close
	msgs []gomidi.Message
}

// eventQueue is a min-heap on (at, seq).
type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)   { *q = append(*q, x.(*event)) }
func (q *eventQueue) Pop() any {
	old := *q
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return ev
}

// Sink plays scheduled tones on a MIDI output port. Arbitrary-EDO
// frequencies rarely land on 12-TET notes, so each tone goes out as the
// nearest note plus a pitch bend, on its own channel so overlapping tones
// don't fight over one channel's bend state.
type Sink struct {
	send       func(gomidi.Message) error
	start      time.Time
	ownsDriver bool

	mu      sync.Mutex
	queue   eventQueue
	seq     int64
	channel uint8
	closed  bool

	stopCh chan struct{}
	wake   chan struct{}
}

// Open connects to the named MIDI output port. An empty name picks the
// first available port.
func Open(portName string) (*Sink, error) {
	outs := gomidi.GetOutPorts()
	if len(outs) == 0 {
		return nil, fmt.Errorf("midi: no output ports available")
	}
	var out drivers.Out
	if portName == "" {
		out = outs[0]
	} else {
		for _, port := range outs {
			if port.String() == portName {
				out = port
				break
			}
		}
		if out == nil {
			return nil, fmt.Errorf("midi: output port %q not found", portName)
		}
	}
	send, err := gomidi.SendTo(out)
	if err != nil {
		return nil, fmt.Errorf("midi: open port %q: %w", out.String(), err)
	}
	s := newSink(send)
	s.ownsDriver = true
	debug.Log("midi", "sink open: port=%q", out.String())
	return s, nil
}

func newSink(send func(gomidi.Message) error) *Sink {
	s := &Sink{
		send:   send,
		start:  time.Now(),
		stopCh: make(chan struct{}),
		wake:   make(chan struct{}, 1),
	}
	go s.dispatchLoop()
	return s
}

// Now returns seconds since the sink was opened.
func (s *Sink) Now() float64 {
	return time.Since(s.start).Seconds()
}

// PlayTone queues the tone's note-on and note-off. The shape is ignored:
// the receiving synth owns the timbre.
func (s *Sink) PlayTone(shape audio.Waveform, freq, startAt, stopAt float64) {
	if stopAt <= startAt || freq <= 0 {
		return
	}
	note, bend, ok := noteAndBend(freq)
	if !ok {
		debug.Log("midi", "drop tone: %.2fHz is outside the note range", freq)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ch := s.nextChannel()
	s.push(startAt, false, gomidi.Pitchbend(ch, bend), gomidi.NoteOn(ch, note, velocity))
	s.push(stopAt, true, gomidi.NoteOff(ch, note))
	s.mu.Unlock()

	s.wakeLoop()
}

// nextChannel rotates through the melodic channels, skipping the GM
// percussion channel. Callers hold mu.
func (s *Sink) nextChannel() uint8 {
	ch := s.channel
	s.channel = (s.channel + 1) % 16
	if s.channel == 9 {
		s.channel = 10
	}
	return ch
}

// push appends one timed batch. Callers hold mu.
func (s *Sink) push(at float64, off bool, msgs ...gomidi.Message) {
	s.seq++
	heap.Push(&s.queue, &event{at: at, seq: s.seq, off: off, msgs: msgs})
}

// wakeLoop nudges the dispatcher after the queue changed.
func (s *Sink) wakeLoop() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// dispatchLoop waits out each event's timestamp and sends its messages.
// A wake interrupts the wait when a newly queued event becomes earliest.
func (s *Sink) dispatchLoop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.stopCh:
				return
			case <-s.wake:
			}
			continue
		}
		ev := s.queue[0]
		wait := time.Duration((ev.at - s.Now()) * float64(time.Second))
		if wait <= 0 {
			heap.Pop(&s.queue)
			// Send under mu: Close also takes it, so its note-off flush
			// can never hit the wire ahead of a batch popped here.
			for _, msg := range ev.msgs {
				if err := s.send(msg); err != nil {
					debug.Log("midi", "send: %v", err)
				}
			}
			s.mu.Unlock()
			continue
		}
		s.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-s.stopCh:
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Close flushes pending note-offs immediately so nothing is left hanging,
// then stops the dispatcher and, when this sink opened the port, the
// driver with it.
func (s *Sink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stopCh)
	var offs []gomidi.Message
	for _, ev := range s.queue {
		if ev.off {
			offs = append(offs, ev.msgs...)
		}
	}
	s.queue = nil
	s.mu.Unlock()

	for _, msg := range offs {
		if err := s.send(msg); err != nil {
			debug.Log("midi", "flush: %v", err)
		}
	}
	if s.ownsDriver {
		gomidi.CloseDriver()
	}
	debug.Log("midi", "sink closed: flushed %d note-offs", len(offs))
	return nil
}

// noteAndBend splits a frequency into the nearest equal-tempered note and
// the microtonal residue as a pitch bend value.
func noteAndBend(freq float64) (note uint8, bend int16, ok bool) {
	exact := 69 + 12*math.Log2(freq/440)
	nearest := math.Round(exact)
	if nearest < 0 || nearest > 127 {
		return 0, 0, false
	}
	b := math.Round((exact - nearest) * bendPerSemitone)
	if b > 8191 {
		b = 8191
	}
	if b < -8192 {
		b = -8192
	}
	return uint8(nearest), int16(b), true
}
