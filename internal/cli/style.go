package cli

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

// styles colour status words when out is a terminal and leave them plain
// otherwise.
type styles struct {
	ok   lipgloss.Style
	bad  lipgloss.Style
	busy lipgloss.Style
	dim  lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		ok:   r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		bad:  r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		busy: r.NewStyle().Foreground(lipgloss.Color("3")),
		dim:  r.NewStyle().Faint(true),
	}
}

// status renders a job or agent status word.
func (s styles) status(word string) string {
	switch word {
	case "complete", "healthy", "open", "dl_done":
		return s.ok.Render(word)
	case "failed", "closed":
		return s.bad.Render(word)
	case "unknown", "dormant":
		return s.dim.Render(word)
	default:
		return s.busy.Render(word)
	}
}
