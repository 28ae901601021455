package audio

import "fmt"

// Waveform identifies the shape of a scheduled tone.
type Waveform string

const (
	Sine     Waveform = "sine"
	Square   Waveform = "square"
	Sawtooth Waveform = "sawtooth"
	Triangle Waveform = "triangle"
)

// Waveforms lists every supported shape, in UI cycling order.
func Waveforms() []Waveform {
	return []Waveform{Sine, Square, Sawtooth, Triangle}
}

// Valid reports whether w names a supported shape.
func (w Waveform) Valid() bool {
	switch w {
	case Sine, Square, Sawtooth, Triangle:
		return true
	}
	return false
}

// ParseWaveform converts a config or UI string into a Waveform.
func ParseWaveform(name string) (Waveform, error) {
	w := Waveform(name)
	if !w.Valid() {
		return "", fmt.Errorf("audio: unknown waveform %q", name)
	}
	return w, nil
}
