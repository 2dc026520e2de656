package beam

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// SelectionPolicy navigates the search manually: after each expansion
// round it is shown the scored states and picks the single one to
// keep. The driver uses the returned index as is, so Select must
// return a valid index into states; StdinPolicy re-prompts until it
// reads one.
type SelectionPolicy interface {
	Select(states []*State) int
}

// StdinPolicy reads selections from an input stream, prompting on an
// output stream. This is the "choose-your-own-schedule" debugging
// mode.
type StdinPolicy struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewStdinPolicy returns a policy prompting on out and reading from in.
func NewStdinPolicy(in io.Reader, out io.Writer) *StdinPolicy {
	return &StdinPolicy{in: bufio.NewScanner(in), out: out}
}

func (p *StdinPolicy) Select(states []*State) int {
	fmt.Fprintf(p.out, "\n--------------------\n")
	fmt.Fprintf(p.out, "Select a schedule:\n")
	for label := len(states) - 1; label >= 0; label-- {
		s := states[label]
		fmt.Fprintf(p.out, "\n[%d]:\n%s", label, describeState(s))
	}
	for {
		fmt.Fprintf(p.out, "\nEnter selection: ")
		if !p.in.Scan() {
			// Input exhausted: keep the best.
			return 0
		}
		sel, err := strconv.Atoi(strings.TrimSpace(p.in.Text()))
		if err == nil && sel >= 0 && sel < len(states) {
			return sel
		}
		fmt.Fprintf(p.out, "Invalid selection.")
	}
}

// ScriptedPolicy replays a fixed sequence of selections, then repeats
// the last one. Used in tests and replay debugging.
type ScriptedPolicy struct {
	Choices []int
	next    int
}

func (p *ScriptedPolicy) Select(states []*State) int {
	if len(p.Choices) == 0 {
		return 0
	}
	c := p.Choices[p.next]
	if p.next < len(p.Choices)-1 {
		p.next++
	}
	if c < 0 || c >= len(states) {
		return 0
	}
	return c
}

// describeState renders a state as an aligned table of one row per
// placed or inlined func plus a cost line.
func describeState(s *State) string {
	var rows [][2]string
	var walk func(l *LoopNest, indent string)
	walk = func(l *LoopNest, indent string) {
		if l.Node != nil {
			where := "compute_root"
			if indent != "" {
				where = "compute_at"
			}
			if len(l.Size) > 0 {
				where += fmt.Sprintf(" tiled%v", l.Size)
			}
			rows = append(rows, [2]string{indent + l.Node.Func.Name, where})
		}
		for _, ch := range l.Children {
			walk(ch, indent+"  ")
		}
	}
	for _, ch := range s.Root.Children {
		walk(ch, "")
	}
	for id := range s.Root.Inlined {
		rows = append(rows, [2]string{fmt.Sprintf("node %d", id), "inline"})
	}

	width := 0
	for _, r := range rows {
		if w := runewidth.StringWidth(r[0]); w > width {
			width = w
		}
	}
	var b strings.Builder
	for _, r := range rows {
		b.WriteString("  ")
		b.WriteString(runewidth.FillRight(r[0], width))
		b.WriteString("  ")
		b.WriteString(r[1])
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  cost: %g  decisions: %d\n", s.Cost, s.NumDecisionsMade)
	return b.String()
}
