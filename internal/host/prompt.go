package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrPromptCancelled is returned when the user dismisses a prompt.
var ErrPromptCancelled = errors.New("prompt cancelled")

// PromptRequest describes a single-line input prompt.
type PromptRequest struct {
	Caption string
	Initial string
	// SelectAll pre-selects the initial text so typing replaces it.
	SelectAll bool
}

// Prompt asks the user for a line of text.
type Prompt interface {
	Ask(ctx context.Context, req PromptRequest) (string, error)
}

// TerminalPrompt reads answers line by line from an input stream.
type TerminalPrompt struct {
	in  *bufio.Reader
	out io.Writer
}

// NewTerminalPrompt creates a prompt reading from in and echoing captions to
// out.
func NewTerminalPrompt(in io.Reader, out io.Writer) *TerminalPrompt {
	return &TerminalPrompt{in: bufio.NewReader(in), out: out}
}

// Ask prints the caption with the initial text and reads one line. An empty
// answer accepts the initial text when it is pre-selected; end of input
// without an answer cancels the prompt.
func (p *TerminalPrompt) Ask(ctx context.Context, req PromptRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if req.Initial != "" {
		fmt.Fprintf(p.out, "%s [%s] ", req.Caption, req.Initial)
	} else {
		fmt.Fprintf(p.out, "%s ", req.Caption)
	}

	line, err := p.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		if errors.Is(err, io.EOF) {
			return "", ErrPromptCancelled
		}
		return "", err
	}

	answer := strings.TrimSpace(line)
	if answer == "" && req.SelectAll {
		return req.Initial, nil
	}
	return answer, nil
}
