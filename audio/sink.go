package audio

// Sink is the output device the scheduler talks to: a monotonic clock plus
// a tone factory. The scheduler computes all start and stop times against
// Now's timeline, so implementations must keep Now monotonic and honor the
// [startAt, stopAt) window on that same clock.
type Sink interface {
	// Now returns the sink's current time in seconds.
	Now() float64

	// PlayTone sounds a periodic tone of the given shape and frequency,
	// audible within [startAt, stopAt) on the sink clock. A start time
	// already in the past begins immediately; stopAt <= startAt drops
	// the tone.
	PlayTone(shape Waveform, freq, startAt, stopAt float64)
}
