// Command tonetest plays one ascending octave of an EDO scale through the
// audio engine. Use it to check the output device and hear a tuning before
// wiring it into the sequencer.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"edostep/audio"
	"edostep/tuning"
)

func main() {
	divisions := flag.Int("divisions", 12, "scale steps per octave")
	ref := flag.Float64("ref", 440, "reference pitch in Hz (octave 4, step 0)")
	wave := flag.String("wave", "sine", "waveform: sine, square, sawtooth, triangle")
	bpm := flag.Float64("bpm", 120, "one scale step per beat")
	flag.Parse()

	shape, err := audio.ParseWaveform(*wave)
	if err != nil {
		fatal(err)
	}
	if *bpm <= 0 {
		fatal(fmt.Errorf("bpm %v, want a positive tempo", *bpm))
	}
	tun, err := tuning.NewEDO(*ref, *divisions)
	if err != nil {
		fatal(err)
	}

	engine, err := audio.Open()
	if err != nil {
		fatal(err)
	}
	defer engine.Close()

	fmt.Printf("%d-EDO at %.2fHz, %s, %.0fbpm\n", *divisions, *ref, shape, *bpm)

	// One octave up plus the doubled reference to close it.
	secPerBeat := 60 / *bpm
	at := engine.Now() + 0.1
	for i := 0; i < tun.Len(); i++ {
		freq := tun.Note(i)
		fmt.Printf("  step %2d: %8.2fHz\n", i, freq)
		engine.PlayTone(shape, freq, at, at+secPerBeat)
		at += secPerBeat
	}
	top := tun.NoteInOctave(tuning.ReferenceOctave+1, 0)
	fmt.Printf("  octave:  %8.2fHz\n", top)
	engine.PlayTone(shape, top, at, at+secPerBeat)
	at += secPerBeat

	// Sleep past the last stop time so the tail is audible.
	time.Sleep(time.Duration((at-engine.Now()+0.2) * float64(time.Second)))
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "tonetest: %v\n", err)
	os.Exit(1)
}
