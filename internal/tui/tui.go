// Package tui renders microphone status and the activity log to the
// terminal and turns raw keyboard input into key-name events.
package tui

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/fankserver/voicepipe/internal/eventloop"
	"github.com/fankserver/voicepipe/internal/segment"
)

const logHistory = 20

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	idleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	disabledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)
)

// TUI is the terminal rendering collaborator; it implements eventloop.UI.
type TUI struct {
	mu   sync.Mutex
	logs []string
}

// New returns an idle TUI.
func New() *TUI {
	return &TUI{}
}

var _ eventloop.UI = (*TUI)(nil)

// Log appends a line to the activity log, trimmed to the last logHistory
// entries.
func (t *TUI) Log(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.logs = append(t.logs, line)
	if len(t.logs) > logHistory {
		t.logs = t.logs[len(t.logs)-logHistory:]
	}
}

// Render redraws the microphone status panel and activity log.
func (t *TUI) Render(snapshot eventloop.Snapshot) {
	t.mu.Lock()
	logs := append([]string(nil), t.logs...)
	t.mu.Unlock()

	var b strings.Builder
	b.WriteString("\033[H\033[2J") // clear screen, home cursor
	b.WriteString(headerStyle.Render("voicepipe") + "\n\n")

	names := make([]string, 0, len(snapshot.States))
	for name := range snapshot.States {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		b.WriteString(fmt.Sprintf("  %s  %s\n", name, renderState(snapshot.States[name])))
	}

	b.WriteString("\n" + headerStyle.Render("activity") + "\n")
	for _, line := range logs {
		b.WriteString("  " + line + "\n")
	}

	fmt.Fprint(os.Stdout, b.String())
}

func renderState(s segment.State) string {
	switch s.Kind {
	case segment.Disabled:
		return disabledStyle.Render("disabled")
	case segment.VoiceActivated:
		return activeStyle.Render(fmt.Sprintf("speaking (%d samples)", len(s.Accumulated)))
	default:
		return idleStyle.Render("listening")
	}
}

// Keys reads single-byte keypresses from stdin and emits their string form
// on the returned channel. Callers are expected to have already put the
// terminal into raw mode (see RawMode).
func Keys() <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		reader := bufio.NewReader(os.Stdin)
		for {
			r, _, err := reader.ReadRune()
			if err != nil {
				return
			}
			out <- string(r)
		}
	}()
	return out
}
