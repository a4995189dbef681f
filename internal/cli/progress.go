package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// ImportProgress renders import percentages as a terminal progress bar.
type ImportProgress struct {
	bar  *progressbar.ProgressBar
	last int
	mu   sync.Mutex
}

// NewImportProgress creates a 0-100 progress bar writing to w.
func NewImportProgress(w io.Writer, description string) *ImportProgress {
	bar := progressbar.NewOptions(100,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return &ImportProgress{bar: bar}
}

// Update moves the bar to percent. A drop back to zero resets the bar.
func (p *ImportProgress) Update(percent int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if percent < p.last {
		p.bar.Reset()
	}
	p.last = percent
	if err := p.bar.Set(percent); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Percent returns the last reported percentage.
func (p *ImportProgress) Percent() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
