package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hupe1980/appforge/core"
)

// textPrinter renders a StreamEvent sequence for a terminal. Nested loops
// are indented by delegation depth.
type textPrinter struct {
	w       io.Writer
	depth   int
	midline bool
}

func newTextPrinter(w io.Writer) *textPrinter {
	return &textPrinter{w: w}
}

// Send implements stream.Sink.
func (p *textPrinter) Send(_ context.Context, ev core.StreamEvent) error {
	switch ev.Type {
	case core.EventTextDelta:
		if !p.midline {
			p.indent()
		}
		_, err := io.WriteString(p.w, ev.Content)
		p.midline = !strings.HasSuffix(ev.Content, "\n")
		return err
	case core.EventAgentStart:
		err := p.line("> %s", ev.Name)
		p.depth++
		return err
	case core.EventAgentEnd:
		if p.depth > 0 {
			p.depth--
		}
		return p.line("< %s (%s)", ev.Name, ev.Reason)
	case core.EventActionStart:
		return p.line("- %s", ev.Action)
	case core.EventActionEnd:
		if ev.IsError {
			return p.line("! %s failed: %s", ev.Action, resultError(ev.Result))
		}
		return nil
	case core.EventPhaseChange:
		return p.line("# phase: %s", ev.Phase)
	case core.EventStructuredOutput:
		if ev.Output == nil {
			return nil
		}
		return p.line("+ %s %s: %s", ev.Output.ID, ev.Output.Type, ev.Output.Title)
	case core.EventError:
		return p.line("! error: %s", ev.Message)
	case core.EventDone:
		return p.line("done")
	}
	return nil
}

func (p *textPrinter) line(format string, args ...any) error {
	if p.midline {
		if _, err := io.WriteString(p.w, "\n"); err != nil {
			return err
		}
		p.midline = false
	}
	p.indent()
	_, err := fmt.Fprintf(p.w, format+"\n", args...)
	return err
}

func (p *textPrinter) indent() {
	_, _ = io.WriteString(p.w, strings.Repeat("  ", p.depth))
}

func resultError(result any) string {
	if m, ok := result.(map[string]any); ok {
		if msg, ok := m["error"].(string); ok {
			return msg
		}
	}
	return "unknown error"
}
