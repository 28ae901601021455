package audio

import "math"

const (
	// toneGain leaves headroom for a handful of simultaneous voices.
	toneGain = 0.2
	// edgeRampSec fades the first and last slice of each tone so its
	// start and stop edges stay click-free.
	edgeRampSec = 0.002
)

// tone is one scheduled oscillator voice. Timing is expressed in absolute
// mixer sample positions, so a tone starts sample-accurately no matter when
// it was handed to the engine.
type tone struct {
	shape    Waveform
	phase    float64 // cycles, [0, 1)
	phaseInc float64 // cycles per sample
	start    int64   // first audible sample
	stop     int64   // first silent sample
}

func newTone(shape Waveform, freq float64, start, stop int64, sampleRate int) *tone {
	return &tone{
		shape:    shape,
		phaseInc: freq / float64(sampleRate),
		start:    start,
		stop:     stop,
	}
}

// sampleAt renders the voice's contribution at absolute position pos.
// Positions must be visited in increasing order; done reports that the
// voice will never sound again.
func (v *tone) sampleAt(pos int64, sampleRate int) (s float64, done bool) {
	if pos >= v.stop {
		return 0, true
	}
	if pos < v.start {
		return 0, false
	}
	s = oscSample(v.shape, v.phase) * toneGain * v.gainAt(pos, sampleRate)
	v.phase += v.phaseInc
	if v.phase >= 1 {
		v.phase -= math.Floor(v.phase)
	}
	return s, false
}

// gainAt applies the edge ramps. Inside the body of the tone it is 1.
func (v *tone) gainAt(pos int64, sampleRate int) float64 {
	ramp := int64(float64(sampleRate) * edgeRampSec)
	if ramp < 1 {
		return 1
	}
	g := 1.0
	if in := pos - v.start; in < ramp {
		g = float64(in) / float64(ramp)
	}
	if out := v.stop - pos; out < ramp {
		if o := float64(out) / float64(ramp); o < g {
			g = o
		}
	}
	return g
}

// oscSample evaluates one oscillator shape at phase, in cycles [0, 1).
func oscSample(shape Waveform, phase float64) float64 {
	switch shape {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		return 2*phase - 1
	case Triangle:
		if phase < 0.5 {
			return 4*phase - 1
		}
		return 3 - 4*phase
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
