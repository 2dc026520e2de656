package beam

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// ProgressBar draws a spinner-decorated bar on a terminal. When the
// writer is not a tty the bar stays silent, so logs piped to a file
// are not full of control characters.
type ProgressBar struct {
	counter uint32
	draw    bool
	out     io.Writer
}

// NewProgressBar returns a bar writing to w (os.Stderr if nil).
func NewProgressBar(w io.Writer) *ProgressBar {
	if w == nil {
		w = os.Stderr
	}
	draw := false
	if f, ok := w.(*os.File); ok {
		draw = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &ProgressBar{draw: draw, out: w}
}

// Set redraws the bar at the given progress in [0, 1]. Redraws are
// rate-limited by a counter so hot loops can call it freely.
func (p *ProgressBar) Set(progress float64) {
	if p == nil || !p.draw {
		return
	}
	p.counter++
	const bits = 11
	if p.counter&((1<<bits)-1) != 0 {
		return
	}
	pos := int(progress * 78)
	fmt.Fprint(p.out, "[")
	for j := 0; j < 78; j++ {
		switch {
		case j < pos:
			fmt.Fprint(p.out, ".")
		case j-1 < pos:
			fmt.Fprint(p.out, string(`/-\|`[(p.counter>>bits)%4]))
		default:
			fmt.Fprint(p.out, " ")
		}
	}
	fmt.Fprint(p.out, "]")
	for j := 0; j < 80; j++ {
		fmt.Fprint(p.out, "\b")
	}
}

// Clear erases the bar.
func (p *ProgressBar) Clear() {
	if p == nil || !p.draw || p.counter == 0 {
		return
	}
	for j := 0; j < 80; j++ {
		fmt.Fprint(p.out, " ")
	}
	for j := 0; j < 80; j++ {
		fmt.Fprint(p.out, "\b")
	}
}
