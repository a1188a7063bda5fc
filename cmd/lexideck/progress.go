package main

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"lexideck/internal/events"
)

// progressSink renders progress events as a terminal bar. Counts that
// arrive after a higher one are ignored.
type progressSink struct {
	mu   sync.Mutex
	out  io.Writer
	bar  *progressbar.ProgressBar
	max  int
	done int
}

func newProgressSink(out io.Writer) *progressSink {
	return &progressSink{out: out}
}

func (p *progressSink) Handle(e events.Event) error {
	progress, ok := e.Payload.(events.Progress)
	if !ok {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if progress.Total <= 0 {
		return nil
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(progress.Total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("cards"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		p.max = progress.Total
	}
	if progress.Total != p.max {
		p.bar.ChangeMax(progress.Total)
		p.max = progress.Total
	}
	if progress.Completed <= p.done {
		return nil
	}
	p.done = progress.Completed
	if err := p.bar.Set(progress.Completed); err != nil {
		return err
	}
	if progress.Completed >= progress.Total {
		return p.bar.Finish()
	}
	return nil
}

// interactive reports whether w is a terminal.
func interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
