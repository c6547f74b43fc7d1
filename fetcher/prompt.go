package fetcher

import (
	"context"
	"io"
	"strings"

	"github.com/tcnksm/go-input"
)

// Prompter is the human side of a fetch.
type Prompter interface {
	// Wait shows instructions and blocks until the human confirms.
	Wait(ctx context.Context, instructions string) error
	// Ask shows a question and returns the trimmed answer.
	Ask(ctx context.Context, question string) (string, error)
}

// LinePrompter talks to the human over a terminal: confirmations are an
// Enter key press, answers are one non-empty line.
type LinePrompter struct {
	ui *input.UI
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{ui: &input.UI{Reader: in, Writer: out}}
}

type answer struct {
	text string
	err  error
}

// ask runs one library prompt. The read itself cannot be interrupted, so a
// cancelled ctx abandons it; the buffered channel lets it finish later.
func (p *LinePrompter) ask(ctx context.Context, query string, opts *input.Options) (string, error) {
	done := make(chan answer, 1)
	go func() {
		text, err := p.ui.Ask(query, opts)
		done <- answer{text: strings.TrimSpace(text), err: err}
	}()
	select {
	case a := <-done:
		return a.text, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *LinePrompter) Wait(ctx context.Context, instructions string) error {
	_, err := p.ask(ctx, "\n"+instructions+"\n\nPress Enter to continue", &input.Options{
		Default:     "",
		Loop:        false,
		HideDefault: true,
	})
	return err
}

func (p *LinePrompter) Ask(ctx context.Context, question string) (string, error) {
	return p.ask(ctx, question, &input.Options{
		Default:  "",
		Required: true,
		Loop:     false,
	})
}
