package output

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/term"
)

// Renderer handles styled terminal output.
type Renderer struct {
	width  int
	styled bool // whether to emit ANSI styling

	Summary lipgloss.Style
	Muted   lipgloss.Style
	Data    lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
}

// NewRenderer creates a renderer. Styling is enabled when writing to a
// TTY, or when forceStyled is true.
func NewRenderer(w io.Writer, forceStyled bool) *Renderer {
	width, isTTY := terminalInfo(w)
	styled := isTTY || forceStyled

	// Set global color profile based on styled flag
	if styled {
		lipgloss.SetColorProfile(2) // TrueColor
	} else {
		lipgloss.SetColorProfile(0) // Ascii (no colors)
	}

	r := &Renderer{
		width:  width,
		styled: styled,
	}

	if styled {
		r.Summary = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
		r.Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
		r.Data = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
		r.Error = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
		r.Hint = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
		r.Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
		r.Success = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	} else {
		r.Summary = lipgloss.NewStyle()
		r.Muted = lipgloss.NewStyle()
		r.Data = lipgloss.NewStyle()
		r.Error = lipgloss.NewStyle()
		r.Hint = lipgloss.NewStyle()
		r.Warning = lipgloss.NewStyle()
		r.Success = lipgloss.NewStyle()
	}

	return r
}

// Width returns the detected terminal width.
func (r *Renderer) Width() int {
	return r.width
}

// Styled reports whether ANSI styling is enabled.
func (r *Renderer) Styled() bool {
	return r.styled
}

// terminalInfo returns the terminal width and whether the writer is a TTY.
func terminalInfo(w io.Writer) (width int, isTTY bool) {
	width = 80 // default

	if f, ok := w.(*os.File); ok {
		if tw, _, err := term.GetSize(f.Fd()); err == nil && tw >= 40 {
			width = tw
		}
		fi, err := f.Stat()
		if err == nil && (fi.Mode()&os.ModeCharDevice) != 0 {
			isTTY = true
		}
	}

	return width, isTTY
}
