package audio

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"

	"edostep/debug"
)

// SampleRate is the engine's fixed output rate.
const SampleRate = 44100

// playerBufferBytes keeps about 10ms of 16-bit mono queued in the device,
// low enough that freshly scheduled tones are not stuck behind stale audio.
const playerBufferBytes = SampleRate / 100 * 2

// Engine is the oto-backed Sink. The mixer's sample position doubles as
// the clock: it advances exactly one tick per rendered sample, so Now moves
// at the speed of audible output and scheduled voices land sample-accurately.
type Engine struct {
	ctx    *oto.Context
	player *oto.Player

	mu     sync.Mutex
	voices []*tone
	pos    int64 // samples rendered since Open
}

// Open initializes the audio device and starts the mix loop.
func Open() (*Engine, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("audio: open device: %w", err)
	}
	<-ready

	e := &Engine{ctx: ctx}
	p := ctx.NewPlayer(e)
	p.SetBufferSize(playerBufferBytes)
	p.Play()
	e.player = p
	debug.Log("audio", "engine open: %dHz mono", SampleRate)
	return e, nil
}

// Now returns seconds of audio rendered since Open.
func (e *Engine) Now() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return float64(e.pos) / SampleRate
}

// PlayTone schedules one voice. Safe to call from any goroutine.
func (e *Engine) PlayTone(shape Waveform, freq, startAt, stopAt float64) {
	if stopAt <= startAt || freq <= 0 {
		return
	}
	start := int64(startAt * SampleRate)
	stop := int64(stopAt * SampleRate)

	e.mu.Lock()
	if start < e.pos {
		start = e.pos
	}
	if stop > start {
		e.voices = append(e.voices, newTone(shape, freq, start, stop, SampleRate))
	}
	e.mu.Unlock()
}

// Read implements io.Reader for the oto player: it sums the live voices
// into 16-bit little-endian mono with a hard clip.
func (e *Engine) Read(p []byte) (int, error) {
	samples := len(p) / 2
	e.mu.Lock()
	for i := 0; i < samples; i++ {
		var sum float64
		keep := e.voices[:0]
		for _, v := range e.voices {
			s, done := v.sampleAt(e.pos, SampleRate)
			sum += s
			if !done {
				keep = append(keep, v)
			}
		}
		e.voices = keep
		if sum > 1 {
			sum = 1
		} else if sum < -1 {
			sum = -1
		}
		val := int16(sum * 32767)
		p[2*i] = byte(val)
		p[2*i+1] = byte(val >> 8)
		e.pos++
	}
	e.mu.Unlock()
	return samples * 2, nil
}

// Close stops playback and releases the device.
func (e *Engine) Close() error {
	if e.player != nil {
		if err := e.player.Close(); err != nil {
			return fmt.Errorf("audio: close player: %w", err)
		}
	}
	debug.Log("audio", "engine closed")
	return nil
}
