package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/nsf/termbox-go"
)

// dashboard is a read-only progress display, repurposed from the teacher's
// interactive reverb-parameter TUI (tui.go) into a terminal view of batch
// job progress: pass/step counters and elapsed time. It never reads input
// to control processing — convolute is a batch CLI, not a real-time
// plugin — it only polls termbox events to redraw on terminal resize.
type dashboard struct {
	mu        sync.Mutex
	passIndex int
	passes    int
	step      int
	steps     int
	started   time.Time
	quit      chan struct{}
}

// newDashboard initialises termbox for a progress display. If termbox
// cannot attach to a terminal (e.g. no TTY, piped output), it returns nil
// and the caller proceeds without a dashboard.
func newDashboard() *dashboard {
	if err := termbox.Init(); err != nil {
		return nil
	}

	termbox.SetInputMode(termbox.InputEsc)

	return &dashboard{
		started: time.Now(),
		quit:    make(chan struct{}),
	}
}

func (d *dashboard) setPass(passIndex, passes int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.passIndex, d.passes = passIndex, passes
}

func (d *dashboard) setStep(step, steps int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.step, d.steps = step, steps
}

func (d *dashboard) run() {
	events := make(chan termbox.Event)

	go func() {
		for {
			events <- termbox.PollEvent()
		}
	}()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	d.draw()

	for {
		select {
		case <-d.quit:
			return
		case ev := <-events:
			if ev.Type == termbox.EventResize {
				d.draw()
			}
		case <-ticker.C:
			d.draw()
		}
	}
}

func (d *dashboard) draw() {
	d.mu.Lock()
	passIndex, passes, step, steps, started := d.passIndex, d.passes, d.step, d.steps, d.started
	d.mu.Unlock()

	_ = termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)

	printLine(0, 0, "convolute - partitioned overlap-add convolution")
	printLine(0, 1, fmt.Sprintf("elapsed: %s", time.Since(started).Round(time.Second)))

	if passes > 0 {
		printLine(0, 3, fmt.Sprintf("pass  %d/%d", passIndex, passes))
	}

	if steps > 0 {
		printLine(0, 4, fmt.Sprintf("block %d/%d", step, steps))
		drawBar(0, 5, 50, float64(step)/float64(steps))
	}

	termbox.Flush()
}

func drawBar(x, y, width int, ratio float64) {
	if ratio < 0 {
		ratio = 0
	}

	if ratio > 1 {
		ratio = 1
	}

	filled := int(ratio * float64(width))

	for i := range width {
		ch := '░'
		if i < filled {
			ch = '█'
		}

		termbox.SetCell(x+i, y, ch, termbox.ColorGreen, termbox.ColorDefault)
	}
}

func printLine(x, y int, msg string) {
	for i, c := range msg {
		termbox.SetCell(x+i, y, c, termbox.ColorWhite, termbox.ColorDefault)
	}
}

func (d *dashboard) close() {
	close(d.quit)
	termbox.Close()
}
