package sequencer

// NoteIterator walks the active slots of one beat in increasing slot
// order, yielding each slot's frequency. It is single-pass: make a new
// one via Sequence.NotesAt for every beat of every scheduling pass.
//
// Callers check HasNext before each Next. Calling Next when nothing
// remains returns 0.
type NoteIterator struct {
	seq  *Sequence
	row  []bool
	next int  // scan cursor into row
	ok   bool // next points at an unconsumed active slot
}

// HasNext reports whether an unvisited active slot remains. It is
// idempotent: repeated calls without an intervening Next neither advance
// the cursor nor re-find the same slot.
func (it *NoteIterator) HasNext() bool {
	if it.ok {
		return true
	}
	for ; it.next < len(it.row); it.next++ {
		if it.row[it.next] {
			it.ok = true
			return true
		}
	}
	return false
}

// Next consumes the slot found by HasNext and returns its frequency,
// decomposing the flat slot index into (octave, note) on the sequence's
// tuning.
func (it *NoteIterator) Next() float64 {
	if !it.HasNext() {
		return 0
	}
	n := it.seq.tun.Len()
	slot := it.next
	it.next++
	it.ok = false
	return it.seq.tun.NoteInOctave(it.seq.lowOctave+slot/n, slot%n)
}
