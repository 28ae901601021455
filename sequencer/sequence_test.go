package sequencer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edostep/tuning"
)

func newTestSequence(t *testing.T, beats, divisions, low, high int) *Sequence {
	t.Helper()
	tun, err := tuning.NewEDO(440, divisions)
	require.NoError(t, err)
	seq, err := NewSequence(beats, tun, low, high)
	require.NoError(t, err)
	return seq
}

func collect(it *NoteIterator) []float64 {
	var out []float64
	for it.HasNext() {
		out = append(out, it.Next())
	}
	return out
}

func TestNewSequenceRejectsBadParams(t *testing.T) {
	t.Parallel()

	tun, err := tuning.NewEDO(440, 12)
	require.NoError(t, err)

	_, err = NewSequence(0, tun, 3, 5)
	assert.Error(t, err)

	_, err = NewSequence(-4, tun, 3, 5)
	assert.Error(t, err)

	_, err = NewSequence(8, nil, 3, 5)
	assert.Error(t, err)

	_, err = NewSequence(8, tun, 5, 3)
	assert.Error(t, err)
}

func TestSequenceDimensions(t *testing.T) {
	t.Parallel()

	seq := newTestSequence(t, 16, 19, 2, 5)
	assert.Equal(t, 16, seq.Beats())
	assert.Equal(t, 19*4, seq.Slots())
	assert.Equal(t, 2, seq.LowOctave())
	assert.Equal(t, 5, seq.HighOctave())
	assert.Equal(t, 19, seq.Tuning().Len())
}

func TestSetUnsetRoundTrip(t *testing.T) {
	t.Parallel()

	seq := newTestSequence(t, 8, 12, 3, 5)

	require.NoError(t, seq.SetNote(2, 4, 3))
	assert.True(t, seq.Active(2, 4, 3))

	want := []float64{seq.Tuning().NoteInOctave(4, 3)}
	assert.Equal(t, want, collect(seq.NotesAt(2)))

	require.NoError(t, seq.UnsetNote(2, 4, 3))
	assert.False(t, seq.Active(2, 4, 3))
	assert.Empty(t, collect(seq.NotesAt(2)))
}

func TestSetNoteIdempotent(t *testing.T) {
	t.Parallel()

	seq := newTestSequence(t, 4, 12, 3, 5)

	require.NoError(t, seq.SetNote(0, 4, 0))
	require.NoError(t, seq.SetNote(0, 4, 0))
	assert.Len(t, collect(seq.NotesAt(0)), 1)

	require.NoError(t, seq.UnsetNote(0, 4, 0))
	require.NoError(t, seq.UnsetNote(0, 4, 0))
	assert.Empty(t, collect(seq.NotesAt(0)))
}

func TestWriteBoundsErrors(t *testing.T) {
	t.Parallel()

	seq := newTestSequence(t, 8, 12, 3, 5)

	cases := []struct {
		name string
		beat int
		oct  int
		note int
	}{
		{"beat below", -1, 4, 0},
		{"beat above", 8, 4, 0},
		{"octave below", 0, 2, 0},
		{"octave above", 0, 6, 0},
		{"note below", 0, 4, -1},
		{"note above", 0, 4, 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, seq.SetNote(tc.beat, tc.oct, tc.note))
			assert.Error(t, seq.UnsetNote(tc.beat, tc.oct, tc.note))
			assert.False(t, seq.Active(tc.beat, tc.oct, tc.note))
		})
	}
}

func TestRejectedWriteLeavesGridSilent(t *testing.T) {
	t.Parallel()

	seq := newTestSequence(t, 4, 12, 3, 5)
	assert.Error(t, seq.SetNote(0, 9, 0))

	for b := 0; b < seq.Beats(); b++ {
		assert.Empty(t, collect(seq.NotesAt(b)), "beat %d", b)
	}
}

func TestIteratorOrderAndDecomposition(t *testing.T) {
	t.Parallel()

	seq := newTestSequence(t, 8, 12, 3, 4)
	tun := seq.Tuning()

	// Set out of order; iteration is always low slot to high.
	require.NoError(t, seq.SetNote(0, 4, 0))
	require.NoError(t, seq.SetNote(0, 3, 5))
	require.NoError(t, seq.SetNote(0, 3, 0))

	want := []float64{
		tun.NoteInOctave(3, 0),
		tun.NoteInOctave(3, 5),
		tun.NoteInOctave(4, 0),
	}
	assert.Equal(t, want, collect(seq.NotesAt(0)))
}

func TestIteratorHasNextIdempotent(t *testing.T) {
	t.Parallel()

	seq := newTestSequence(t, 4, 12, 3, 5)
	require.NoError(t, seq.SetNote(1, 3, 7))

	it := seq.NotesAt(1)
	for i := 0; i < 5; i++ {
		assert.True(t, it.HasNext())
	}

	freq := it.Next()
	assert.Equal(t, seq.Tuning().NoteInOctave(3, 7), freq)

	for i := 0; i < 5; i++ {
		assert.False(t, it.HasNext())
	}
	assert.Zero(t, it.Next())
}

func TestIteratorEmptyBeat(t *testing.T) {
	t.Parallel()

	seq := newTestSequence(t, 4, 12, 3, 5)
	it := seq.NotesAt(3)
	assert.False(t, it.HasNext())
	assert.Zero(t, it.Next())
}

func TestIteratorsAreIndependent(t *testing.T) {
	t.Parallel()

	seq := newTestSequence(t, 4, 12, 3, 5)
	require.NoError(t, seq.SetNote(0, 4, 0))
	require.NoError(t, seq.SetNote(0, 4, 7))

	first := seq.NotesAt(0)
	assert.Len(t, collect(first), 2)
	assert.False(t, first.HasNext())

	// Exhausting one iterator must not drain a fresh one.
	assert.Len(t, collect(seq.NotesAt(0)), 2)
}
