package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fruitsalade/slackfiles/internal/dataset"
	"github.com/fruitsalade/slackfiles/internal/report"
)

// Confirmer approves or rejects a destructive operation.
type Confirmer interface {
	Confirm(summary dataset.ImageSummary) (bool, error)
}

type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm asks a y/N question. Anything but y or yes declines.
func (p *promptConfirmer) Confirm(summary dataset.ImageSummary) (bool, error) {
	fmt.Fprintf(p.out, "Delete %d abandoned images (%s)? [y/N] ",
		summary.Total.Count, report.FormatSize(summary.Total.Bytes))

	line, err := p.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
