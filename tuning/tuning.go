package tuning

import (
	"fmt"
	"math"
)

// ReferenceOctave is the octave the pitch table describes; NoteInOctave
// transposes relative to it.
const ReferenceOctave = 4

// Tuning is an immutable table of frequencies for one reference octave.
// Sequences hold a Tuning by reference, so it must outlive them.
type Tuning struct {
	pitches []float64
}

// New builds a tuning from an explicit pitch table (Hz, reference octave).
// The table must hold at least one positive finite frequency.
func New(pitches []float64) (*Tuning, error) {
	if len(pitches) == 0 {
		return nil, fmt.Errorf("tuning: pitch table is empty")
	}
	t := &Tuning{pitches: make([]float64, len(pitches))}
	for i, p := range pitches {
		if !(p > 0) || math.IsInf(p, 1) {
			return nil, fmt.Errorf("tuning: pitch %d is %v, want a positive finite frequency", i, p)
		}
		t.pitches[i] = p
	}
	return t, nil
}

// NewEDO builds an equal-division-of-the-octave tuning: divisions steps per
// octave, each 2^(1/divisions) above the previous, starting at referencePitch.
func NewEDO(referencePitch float64, divisions int) (*Tuning, error) {
	if divisions < 1 {
		return nil, fmt.Errorf("tuning: %d divisions per octave, want at least 1", divisions)
	}
	if !(referencePitch > 0) || math.IsInf(referencePitch, 1) {
		return nil, fmt.Errorf("tuning: reference pitch %v, want a positive finite frequency", referencePitch)
	}
	pitches := make([]float64, divisions)
	for i := range pitches {
		pitches[i] = referencePitch * math.Pow(2, float64(i)/float64(divisions))
	}
	return &Tuning{pitches: pitches}, nil
}

// Len returns the number of steps per octave.
func (t *Tuning) Len() int { return len(t.pitches) }

// Note returns the frequency of step i within the reference octave.
// i must be in [0, Len()).
func (t *Tuning) Note(i int) float64 { return t.pitches[i] }

// NoteInOctave returns the frequency of step note transposed into octave.
// Each octave above the reference doubles the frequency, each octave below
// halves it. Valid for any integer octave.
func (t *Tuning) NoteInOctave(octave, note int) float64 {
	return t.pitches[note] * math.Pow(2, float64(octave-ReferenceOctave))
}
