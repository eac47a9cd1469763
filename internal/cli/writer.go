package cli

import (
	"fmt"
	"io"
	"os"
)

// ANSI Color codes
const (
	ColorReset = "\033[0m"
	ColorRed   = "\033[31m"
	ColorGreen = "\033[32m"
	ColorCyan  = "\033[36m"
	ColorGray  = "\033[90m"
	ColorBold  = "\033[1m"
)

// Writer provides utilities for writing terminal output
type Writer struct {
	writer    io.Writer
	colorMode bool
}

func NewWriter(w io.Writer) *Writer {
	if w == nil {
		w = os.Stdout
	}
	return &Writer{
		writer:    w,
		colorMode: true,
	}
}

func (w *Writer) SetColorMode(enabled bool) {
	w.colorMode = enabled
}

// Write writes content to the output
func (w *Writer) Write(content string) {
	fmt.Fprint(w.writer, content)
}

// WriteLine writes a line to the output
func (w *Writer) WriteLine(content string) {
	fmt.Fprintln(w.writer, content)
}

// WriteColored writes colored content if color mode is enabled
func (w *Writer) WriteColored(content, color string) {
	if w.colorMode {
		fmt.Fprintf(w.writer, "%s%s%s", color, content, ColorReset)
	} else {
		fmt.Fprint(w.writer, content)
	}
}
