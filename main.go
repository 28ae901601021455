package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"edostep/audio"
	"edostep/config"
	"edostep/debug"
	"edostep/midi"
	"edostep/sequencer"
	"edostep/tui"
	"edostep/tuning"
)

func main() {
	if os.Getenv("EDOSTEP_DEBUG") == "1" {
		if err := debug.Enable(); err != nil {
			fmt.Fprintf(os.Stderr, "debug log: %v\n", err)
		}
		defer debug.Disable()
	}

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}

	tun, err := tuning.NewEDO(cfg.ReferencePitch, cfg.Divisions)
	if err != nil {
		fatal(err)
	}
	seq, err := sequencer.NewSequence(cfg.Beats, tun, cfg.LowOctave, cfg.HighOctave)
	if err != nil {
		fatal(err)
	}

	sink, closer, err := openSink(cfg)
	if err != nil {
		fatal(err)
	}
	defer closer.Close()

	sched := sequencer.NewScheduler(seq, sink)
	if err := sched.SetBPM(cfg.Tempo); err != nil {
		fatal(err)
	}
	wave, err := audio.ParseWaveform(cfg.Waveform)
	if err != nil {
		fatal(err)
	}
	if err := sched.SetWaveform(wave); err != nil {
		fatal(err)
	}

	m := tui.NewModel(seq, sched)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fatal(err)
	}
}

// openSink picks the output the config asks for.
func openSink(cfg *config.Config) (audio.Sink, io.Closer, error) {
	switch cfg.Output {
	case config.OutputMIDI:
		s, err := midi.Open(cfg.MIDIPort)
		return s, s, err
	case config.OutputAudio, "":
		e, err := audio.Open()
		return e, e, err
	}
	return nil, nil, fmt.Errorf("config: unknown output %q", cfg.Output)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "edostep: %v\n", err)
	os.Exit(1)
}
