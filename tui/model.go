package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"edostep/audio"
	"edostep/debug"
	"edostep/sequencer"
)

// Model is the grid editor: pitch slots as rows (highest on top), beats as
// columns. All mutation goes through the Sequence and Scheduler setters;
// rejected values land in the status line instead of the grid.
type Model struct {
	Seq   *sequencer.Sequence
	Sched *sequencer.Scheduler

	cursorBeat int
	cursorSlot int
	status     string
	quitting   bool
}

// UpdateMsg signals a scheduler state change worth redrawing for.
type UpdateMsg struct{}

func NewModel(seq *sequencer.Sequence, sched *sequencer.Scheduler) Model {
	return Model{Seq: seq, Sched: sched}
}

// ListenForUpdates relays scheduler notifications into the bubbletea loop.
func ListenForUpdates(sched *sequencer.Scheduler) tea.Cmd {
	return func() tea.Msg {
		<-sched.Updates()
		return UpdateMsg{}
	}
}

func (m Model) Init() tea.Cmd {
	return ListenForUpdates(m.Sched)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		m.status = ""
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.Sched.Stop()
			return m, tea.Quit

		case "p":
			if m.Sched.Playing() {
				m.Sched.Stop()
			} else {
				m.Sched.Start()
			}

		case " ", "space":
			m.toggle()

		case "h", "left":
			m.cursorBeat = wrap(m.cursorBeat-1, m.Seq.Beats())
		case "l", "right":
			m.cursorBeat = wrap(m.cursorBeat+1, m.Seq.Beats())
		case "k", "up":
			m.cursorSlot = wrap(m.cursorSlot+1, m.Seq.Slots())
		case "j", "down":
			m.cursorSlot = wrap(m.cursorSlot-1, m.Seq.Slots())

		case "+", "=":
			m.setBPM(m.Sched.BPM() + 5)
		case "-", "_":
			m.setBPM(m.Sched.BPM() - 5)

		case "w":
			m.cycleWaveform()
		}

	case UpdateMsg:
		return m, ListenForUpdates(m.Sched)
	}

	return m, nil
}

// toggle flips the cell under the cursor.
func (m *Model) toggle() {
	octave, note := m.pitchAt(m.cursorSlot)
	var err error
	if m.Seq.Active(m.cursorBeat, octave, note) {
		err = m.Seq.UnsetNote(m.cursorBeat, octave, note)
	} else {
		err = m.Seq.SetNote(m.cursorBeat, octave, note)
	}
	if err != nil {
		m.status = err.Error()
		return
	}
	debug.Log("tui", "toggle beat=%d octave=%d note=%d", m.cursorBeat, octave, note)
}

func (m *Model) setBPM(bpm float64) {
	if err := m.Sched.SetBPM(bpm); err != nil {
		m.status = err.Error()
	}
}

// cycleWaveform steps to the next shape in display order.
func (m *Model) cycleWaveform() {
	shapes := audio.Waveforms()
	cur := m.Sched.Waveform()
	for i, w := range shapes {
		if w == cur {
			if err := m.Sched.SetWaveform(shapes[(i+1)%len(shapes)]); err != nil {
				m.status = err.Error()
			}
			return
		}
	}
}

// pitchAt decomposes a flat slot index into its grid coordinate.
func (m Model) pitchAt(slot int) (octave, note int) {
	n := m.Seq.Tuning().Len()
	return m.Seq.LowOctave() + slot/n, slot % n
}

func wrap(v, n int) int {
	return ((v % n) + n) % n
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	headerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	playState := "STOP"
	if m.Sched.Playing() {
		playState = "PLAY"
	}
	playhead := m.Sched.Beat()

	header := headerStyle.Render(fmt.Sprintf("edostep  %s  %3.0fbpm  %s  beat:%02d",
		playState, m.Sched.BPM(), m.Sched.Waveform(), playhead))

	// Grid - single char per cell, highest pitch on top
	var grid strings.Builder
	for slot := m.Seq.Slots() - 1; slot >= 0; slot-- {
		octave, note := m.pitchAt(slot)
		grid.WriteString(fmt.Sprintf("%d:%02d ", octave, note))

		for beat := 0; beat < m.Seq.Beats(); beat++ {
			isCursor := beat == m.cursorBeat && slot == m.cursorSlot
			active := m.Seq.Active(beat, octave, note)

			var char string
			if m.Sched.Playing() && beat == playhead {
				if isCursor {
					char = "▷" // cursor on playhead
				} else {
					char = "▶" // playhead
				}
			} else if active {
				if isCursor {
					char = "◉" // cursor on active
				} else {
					char = "●" // active
				}
			} else {
				if isCursor {
					char = "○" // cursor on empty
				} else {
					char = "·" // empty
				}
			}

			grid.WriteString(char)
		}
		grid.WriteString("\n")
	}

	help := dimStyle.Render("hjkl:nav  space:toggle  p:play  +/-:tempo  w:wave  q:quit")

	var out strings.Builder
	out.WriteString("\n")
	out.WriteString(header)
	out.WriteString("\n\n")
	out.WriteString(grid.String())
	out.WriteString("\n")
	out.WriteString(help)

	if m.status != "" {
		out.WriteString("\n")
		out.WriteString(errStyle.Render(m.status))
	}

	return out.String()
}
