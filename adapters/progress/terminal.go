// Package progress provides implementations of the progress port: a
// single-line terminal reporter for interactive runs and a silent one
// for embedding.
package progress

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gotemper/ports"
)

// Terminal renders run progress as one carriage-return-refreshed line:
// phase, step counts, percentage, elapsed time, estimated remaining
// time and the latest diagnostic annotations.
type Terminal struct {
	mu          sync.Mutex
	w           io.Writer
	total       int
	current     int
	phase       string
	annotations map[string]float64
	start       time.Time
	lastRender  time.Time
	minInterval time.Duration
	lastWidth   int
}

// NewTerminal creates a reporter writing to w; nil falls back to stderr.
func NewTerminal(w io.Writer) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	return &Terminal{
		w:           w,
		annotations: make(map[string]float64),
		start:       time.Now(),
		minInterval: 100 * time.Millisecond,
	}
}

// SetTotal implements ports.ProgressReporter.
func (t *Terminal) SetTotal(total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.total = total
	t.render(true)
}

// SetPhase implements ports.ProgressReporter.
func (t *Terminal) SetPhase(phase string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phase = phase
	t.render(true)
}

// Step implements ports.ProgressReporter. Rendering is throttled so
// per-iteration ticks never dominate fast sampling.
func (t *Terminal) Step() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current++
	t.render(false)
}

// Annotate implements ports.ProgressReporter.
func (t *Terminal) Annotate(fields map[string]float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, v := range fields {
		t.annotations[k] = v
	}
	t.render(true)
}

// Finish implements ports.ProgressReporter.
func (t *Terminal) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.render(true)
	fmt.Fprintln(t.w)
}

// render must be called with the mutex held.
func (t *Terminal) render(force bool) {
	now := time.Now()
	if !force && now.Sub(t.lastRender) < t.minInterval {
		return
	}
	t.lastRender = now

	var b strings.Builder
	if t.phase != "" {
		fmt.Fprintf(&b, "%s: ", t.phase)
	}
	if t.total > 0 {
		pct := 100 * float64(t.current) / float64(t.total)
		fmt.Fprintf(&b, "%d/%d (%.0f%%)", t.current, t.total, pct)
	} else {
		fmt.Fprintf(&b, "%d", t.current)
	}

	elapsed := now.Sub(t.start)
	fmt.Fprintf(&b, " [%s", formatDuration(elapsed))
	if t.total > 0 && t.current > 0 && t.current < t.total {
		perStep := elapsed / time.Duration(t.current)
		eta := perStep * time.Duration(t.total-t.current)
		fmt.Fprintf(&b, "<%s", formatDuration(eta))
	}
	b.WriteString("]")

	if len(t.annotations) > 0 {
		keys := make([]string, 0, len(t.annotations))
		for k := range t.annotations {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			v := t.annotations[k]
			if math.IsNaN(v) {
				parts[i] = fmt.Sprintf("%s=?", k)
			} else {
				parts[i] = fmt.Sprintf("%s=%.3g", k, v)
			}
		}
		fmt.Fprintf(&b, " %s", strings.Join(parts, " "))
	}

	line := b.String()
	pad := ""
	if w := len(line); w < t.lastWidth {
		pad = strings.Repeat(" ", t.lastWidth-w)
	}
	t.lastWidth = len(line)
	fmt.Fprintf(t.w, "\r%s%s", line, pad)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	s := d - m*time.Minute
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, int(s.Seconds()))
	}
	return fmt.Sprintf("%02d:%02d", m, int(s.Seconds()))
}

// Nop discards all progress events.
type Nop struct{}

// NewNop creates a reporter that ignores everything it is told.
func NewNop() Nop { return Nop{} }

func (Nop) SetTotal(int)                {}
func (Nop) SetPhase(string)             {}
func (Nop) Step()                       {}
func (Nop) Annotate(map[string]float64) {}
func (Nop) Finish()                     {}

var (
	_ ports.ProgressReporter = (*Terminal)(nil)
	_ ports.ProgressReporter = Nop{}
)
