// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// Bar implements a progress bar that must be manually managed. The
// Display() function must be called whenever an updated progress bar
// should be printed.
type Bar struct {
	w               io.Writer
	width           float64
	maxProgress     float64
	currentProgress float64
	bar             strings.Builder
	startTime       time.Time
}

// New returns a new progress bar that is width characters wide and
// reaches 100% capacity when the progress reaches max. The bar is
// printed to w on each call to Display().
func New(w io.Writer, width, max int) *Bar {
	return &Bar{
		w:           w,
		width:       float64(width),
		maxProgress: float64(max),
		startTime:   time.Now(),
	}
}

// Increment increments the internal progress counter. Each time an
// iteration is performed, Increment should be called.
func (b *Bar) Increment() {
	if b.currentProgress < b.maxProgress {
		b.currentProgress++
	}
}

// Set sets the internal progress counter
func (b *Bar) Set(progress int) {
	b.currentProgress = float64(progress)
	if b.currentProgress > b.maxProgress {
		b.currentProgress = b.maxProgress
	}
}

// Display prints the progress bar, overwriting the previously displayed
// bar
func (b *Bar) Display() {
	b.bar.Reset()
	b.bar.Write([]byte("|"))

	currentProg := b.currentProgress / b.maxProgress * b.width
	for i := 0.0; i < currentProg; i++ {
		b.bar.Write([]byte("█"))
	}
	for i := currentProg; i < b.width; i++ {
		b.bar.Write([]byte(" "))
	}
	b.bar.Write([]byte(fmt.Sprintf("| [%.2f%% | elapsed: %v]",
		b.currentProgress/b.maxProgress*100,
		time.Since(b.startTime).Truncate(time.Second))))

	fmt.Fprintf(b.w, "\r\033[K%v", b.bar.String())
}

// Close finishes the progress bar, jumping to the next line after the
// printed bar
func (b *Bar) Close() {
	fmt.Fprintln(b.w)
}
