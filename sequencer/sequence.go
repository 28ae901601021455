package sequencer

import (
	"fmt"

	"edostep/tuning"
)

// Sequence is the note grid: beats columns wide, one pitch slot per
// (octave, note) pair in the configured range. Dimensions are fixed at
// construction; cells are flipped one at a time through SetNote and
// UnsetNote.
//
// Sequence itself is not synchronized. The Scheduler reads it under its
// own lock, and the TUI mutates it from the same goroutine that drives
// the scheduler's mutators.
type Sequence struct {
	tun        *tuning.Tuning
	lowOctave  int
	highOctave int
	cells      [][]bool // [beat][slot]
}

// NewSequence allocates an all-silent grid of beats columns spanning
// octaves lowOctave through highOctave inclusive on tun.
func NewSequence(beats int, tun *tuning.Tuning, lowOctave, highOctave int) (*Sequence, error) {
	if beats < 1 {
		return nil, fmt.Errorf("sequencer: %d beats, want at least 1", beats)
	}
	if tun == nil {
		return nil, fmt.Errorf("sequencer: nil tuning")
	}
	if lowOctave > highOctave {
		return nil, fmt.Errorf("sequencer: octave range %d..%d is inverted", lowOctave, highOctave)
	}
	slots := tun.Len() * (highOctave - lowOctave + 1)
	cells := make([][]bool, beats)
	for i := range cells {
		cells[i] = make([]bool, slots)
	}
	return &Sequence{
		tun:        tun,
		lowOctave:  lowOctave,
		highOctave: highOctave,
		cells:      cells,
	}, nil
}

// Beats returns the number of grid columns.
func (s *Sequence) Beats() int { return len(s.cells) }

// Tuning returns the tuning the grid is built on.
func (s *Sequence) Tuning() *tuning.Tuning { return s.tun }

// LowOctave returns the lowest octave in the grid's pitch range.
func (s *Sequence) LowOctave() int { return s.lowOctave }

// HighOctave returns the highest octave in the grid's pitch range.
func (s *Sequence) HighOctave() int { return s.highOctave }

// Slots returns the number of pitch rows in the grid.
func (s *Sequence) Slots() int {
	return s.tun.Len() * (s.highOctave - s.lowOctave + 1)
}

// slot maps a pitch coordinate to its flat index, low pitches first, or
// an error when the coordinate lies outside the grid.
func (s *Sequence) slot(beat, octave, note int) (int, error) {
	if beat < 0 || beat >= len(s.cells) {
		return 0, fmt.Errorf("sequencer: beat %d out of range [0,%d)", beat, len(s.cells))
	}
	if octave < s.lowOctave || octave > s.highOctave {
		return 0, fmt.Errorf("sequencer: octave %d out of range [%d,%d]", octave, s.lowOctave, s.highOctave)
	}
	if note < 0 || note >= s.tun.Len() {
		return 0, fmt.Errorf("sequencer: note %d out of range [0,%d)", note, s.tun.Len())
	}
	return (octave-s.lowOctave)*s.tun.Len() + note, nil
}

// SetNote marks (beat, octave, note) active. Setting an already active
// cell is a no-op.
func (s *Sequence) SetNote(beat, octave, note int) error {
	return s.write(beat, octave, note, true)
}

// UnsetNote silences (beat, octave, note). Clearing a silent cell is a
// no-op.
func (s *Sequence) UnsetNote(beat, octave, note int) error {
	return s.write(beat, octave, note, false)
}

func (s *Sequence) write(beat, octave, note int, active bool) error {
	i, err := s.slot(beat, octave, note)
	if err != nil {
		return err
	}
	s.cells[beat][i] = active
	return nil
}

// Active reports whether (beat, octave, note) is set. Coordinates outside
// the grid read as silent.
func (s *Sequence) Active(beat, octave, note int) bool {
	i, err := s.slot(beat, octave, note)
	if err != nil {
		return false
	}
	return s.cells[beat][i]
}

// NotesAt returns a fresh single-pass iterator over the sounding
// frequencies of one beat, lowest slot first. beat must be in
// [0, Beats()).
func (s *Sequence) NotesAt(beat int) *NoteIterator {
	return &NoteIterator{seq: s, row: s.cells[beat]}
}
