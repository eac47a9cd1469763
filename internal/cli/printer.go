package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"qroute/internal/pipeline"
	"qroute/internal/router"

	"github.com/charmbracelet/glamour"
)

// Format selects how results are printed
type Format int

const (
	FormatMarkdown Format = iota // route header plus glamour-rendered answer
	FormatRaw                    // route header plus the answer as returned
	FormatJSON                   // one JSON object per result
)

const wordWrap = 80

// Printer writes pipeline results to the terminal
type Printer struct {
	out      *Writer
	format   Format
	renderer *glamour.TermRenderer
}

// NewPrinter creates a printer. Markdown rendering falls back to raw output
// when no renderer can be built.
func NewPrinter(out *Writer, format Format) *Printer {
	p := &Printer{out: out, format: format}
	if format == FormatMarkdown {
		style := glamour.WithAutoStyle()
		if !out.colorMode {
			style = glamour.WithStandardStyle("notty")
		}
		r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wordWrap))
		if err == nil {
			p.renderer = r
		}
	}
	return p
}

// PrintResult writes one result
func (p *Printer) PrintResult(res *pipeline.Result) error {
	if p.format == FormatJSON {
		data, err := json.Marshal(res)
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		p.out.WriteLine(string(data))
		return nil
	}

	p.out.WriteColored("Route: ", ColorGray)
	p.out.WriteColored(string(res.Route), routeColor(res.Route))
	p.out.WriteLine("")
	p.out.WriteLine(p.render(res.Response))
	return nil
}

// PrintQuery writes the query header used by demo runs
func (p *Printer) PrintQuery(query string) {
	if p.format == FormatJSON {
		return
	}
	p.out.WriteLine(strings.Repeat("=", 50))
	p.out.WriteColored("Query: ", ColorBold)
	p.out.WriteLine(query)
}

// PrintError writes a fatal pipeline error
func (p *Printer) PrintError(err error) {
	if p.format == FormatJSON {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		p.out.WriteLine(string(data))
		return
	}
	p.out.WriteColored("Error: "+err.Error(), ColorRed)
	p.out.WriteLine("")
}

func (p *Printer) render(content string) string {
	if p.renderer == nil {
		return content
	}
	rendered, err := p.renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimRight(rendered, "\n")
}

func routeColor(r router.Route) string {
	if r.NeedsTool() {
		return ColorCyan
	}
	return ColorGreen
}
