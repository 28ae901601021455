package sequencer

import (
	"fmt"
	"math"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"edostep/audio"
	"edostep/debug"
)

// Scheduling cadence. The poll timer fires every lookAhead, and each pass
// hands the sink everything that starts inside the next scheduleAhead
// seconds, so timer jitter stays well inside the horizon already queued.
const (
	defaultLookAhead     = 25 * time.Millisecond
	defaultScheduleAhead = 0.1 // seconds of sink-clock horizon
)

// Scheduler turns the grid into timed tone events. It reconciles two
// clocks: a coarse wall-clock poll timer that wakes the loop, and the
// sink's own clock that all start and stop times are computed against,
// so notes stay on the beat even when a poll arrives late.
type Scheduler struct {
	seq  *Sequence
	sink audio.Sink

	clock         clock.Clock   // poll timer source, real in production
	lookAhead     time.Duration // poll period
	scheduleAhead float64       // seconds scheduled per pass

	mu           sync.Mutex
	bpm          float64
	waveform     audio.Waveform
	beat         int     // next beat to schedule, in [0, seq.Beats())
	playhead     int     // beat most recently handed to the sink
	nextNoteTime float64 // sink-clock start of the next beat, seconds
	playing      bool
	stopCh       chan struct{} // cancels the pending poll

	updates chan struct{}
}

// NewScheduler wires seq to sink with the defaults: 120 BPM, sine.
func NewScheduler(seq *Sequence, sink audio.Sink) *Scheduler {
	return &Scheduler{
		seq:           seq,
		sink:          sink,
		clock:         clock.RealClock{},
		lookAhead:     defaultLookAhead,
		scheduleAhead: defaultScheduleAhead,
		bpm:           120,
		waveform:      audio.Sine,
		updates:       make(chan struct{}, 1),
	}
}

// Start begins playback from beat 0 on the sink's current time. Starting
// while already playing is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.playing {
		s.mu.Unlock()
		return
	}
	s.playing = true
	s.beat = 0
	s.playhead = 0
	s.nextNoteTime = s.sink.Now()
	s.stopCh = make(chan struct{})
	bpm, wave := s.bpm, s.waveform
	s.mu.Unlock()

	debug.Log("sched", "start: bpm=%.1f wave=%s", bpm, wave)
	go s.run()
	s.notify()
}

// Stop cancels the pending poll. Tones already handed to the sink run to
// their precomputed stop times rather than being cut off.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.playing {
		s.mu.Unlock()
		return
	}
	s.playing = false
	close(s.stopCh)
	s.mu.Unlock()

	debug.Log("sched", "stop")
	s.notify()
}

// run is the poll loop: drain the look-ahead window, then re-arm the
// timer for lookAhead from now. Re-arming after the pass, not on a fixed
// period, keeps a slow pass from stacking timer fires.
func (s *Scheduler) run() {
	s.pass()
	t := s.clock.NewTimer(s.lookAhead)
	defer t.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C():
			s.pass()
			t.Reset(s.lookAhead)
			debug.LogEvery(400, "sched", "poll")
		}
	}
}

// pass schedules every beat whose start falls inside the horizon. The
// note duration is frozen from the tempo in force at schedule time, so a
// later SetBPM never reshapes tones the sink already holds.
func (s *Scheduler) pass() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.playing {
		return
	}
	horizon := s.sink.Now() + s.scheduleAhead
	advanced := false
	for s.nextNoteTime < horizon {
		secPerBeat := 60 / s.bpm
		n := 0
		it := s.seq.NotesAt(s.beat)
		for it.HasNext() {
			s.sink.PlayTone(s.waveform, it.Next(), s.nextNoteTime, s.nextNoteTime+secPerBeat)
			n++
		}
		debug.Log("sched", "beat %02d at %.3f: %d notes", s.beat, s.nextNoteTime, n)
		s.playhead = s.beat
		s.nextNoteTime += secPerBeat
		s.beat = (s.beat + 1) % s.seq.Beats()
		advanced = true
	}
	if advanced {
		s.notify()
	}
}

// SetBPM changes the tempo for beats scheduled after the call. It rejects
// values the loop cannot survive and leaves the current tempo in place.
func (s *Scheduler) SetBPM(bpm float64) error {
	if math.IsNaN(bpm) || math.IsInf(bpm, 0) || bpm <= 0 {
		return fmt.Errorf("sequencer: bpm %v, want a positive finite tempo", bpm)
	}
	s.mu.Lock()
	s.bpm = bpm
	s.mu.Unlock()

	debug.Log("sched", "bpm=%.1f", bpm)
	s.notify()
	return nil
}

// SetWaveform changes the timbre of tones scheduled after the call.
func (s *Scheduler) SetWaveform(w audio.Waveform) error {
	if !w.Valid() {
		return fmt.Errorf("sequencer: unknown waveform %q", w)
	}
	s.mu.Lock()
	s.waveform = w
	s.mu.Unlock()

	debug.Log("sched", "wave=%s", w)
	s.notify()
	return nil
}

// BPM returns the current tempo.
func (s *Scheduler) BPM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm
}

// Waveform returns the current timbre.
func (s *Scheduler) Waveform() audio.Waveform {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waveform
}

// Beat returns the beat most recently handed to the sink. It leads the
// audible beat by up to scheduleAhead seconds.
func (s *Scheduler) Beat() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playhead
}

// Playing reports whether the poll loop is running.
func (s *Scheduler) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Updates signals state changes: transport, tempo, timbre, playhead.
// The channel is never closed and drops signals nobody is waiting for.
func (s *Scheduler) Updates() <-chan struct{} {
	return s.updates
}

// notify wakes the UI without ever blocking the loop.
func (s *Scheduler) notify() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}
