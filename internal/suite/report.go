package suite

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/hazz-dev/conncheck/internal/checker"
)

// Output formats accepted by WriteReport.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Printer writes result lines and the summary as plain or coloured text.
type Printer struct {
	out    io.Writer
	styles map[checker.Status]*color.Color
	bold   *color.Color
}

// NewPrinter returns a Printer for out. Colour is used only when colorize
// is true.
func NewPrinter(out io.Writer, colorize bool) *Printer {
	p := &Printer{
		out: out,
		styles: map[checker.Status]*color.Color{
			checker.StatusPass: color.New(color.FgGreen),
			checker.StatusFail: color.New(color.FgRed),
			checker.StatusSkip: color.New(color.FgYellow),
		},
		bold: color.New(color.Bold),
	}
	for _, c := range append([]*color.Color{p.bold}, p.styleList()...) {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p *Printer) styleList() []*color.Color {
	out := make([]*color.Color, 0, len(p.styles))
	for _, c := range p.styles {
		out = append(out, c)
	}
	return out
}

var symbols = map[checker.Status]string{
	checker.StatusPass: "✓",
	checker.StatusFail: "✗",
	checker.StatusSkip: "⊘",
}

// FormatLine renders one result without colour.
func FormatLine(r checker.Result) string {
	return formatLine(tag(r.Status), r)
}

func formatLine(tag string, r checker.Result) string {
	return fmt.Sprintf("%s %-12s via %-16s (%4d ms) -> %s", tag, r.Service, r.Client, r.DurationMs, r.Detail)
}

func tag(s checker.Status) string {
	return fmt.Sprintf("[%s %s]", symbols[s], s)
}

// Result prints one result line. Only the status tag is coloured.
func (p *Printer) Result(r checker.Result) {
	t := tag(r.Status)
	if style, ok := p.styles[r.Status]; ok {
		t = style.Sprint(t)
	}
	fmt.Fprintln(p.out, formatLine(t, r))
}

// Header prints the banner shown before the first result.
func (p *Printer) Header() {
	fmt.Fprintln(p.out, p.bold.Sprint("Service connectivity checks"))
	fmt.Fprintln(p.out)
}

// Summary prints the closing summary line.
func (p *Printer) Summary(rep Report) {
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, p.bold.Sprint("Summary: "+rep.Summary()))
}

// WriteReport encodes rep as json or yaml.
func WriteReport(out io.Writer, format string, rep Report) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encoding json report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(rep); err != nil {
			return fmt.Errorf("encoding yaml report: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown report format %q (must be text, json, or yaml)", format)
	}
}
