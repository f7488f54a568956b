package progress

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// Event is an amount of bytes written for an item since the previous event,
// consumers sum them.
type Event struct {
	Item  string
	Bytes int64
}

// Sink renders the progress of a single item. Exactly one of Finish or
// Abort is called once the item is done.
type Sink interface {
	Add(n int64)
	Finish()
	Abort()
}

// Consume feeds every event to `sink` until `events` is closed and returns
// the total number of bytes reported. Closing the channel says nothing about
// the outcome, the caller settles the sink once it knows it.
func Consume(events <-chan Event, sink Sink) int64 {
	var total int64
	for event := range events {
		total += event.Bytes
		sink.Add(event.Bytes)
	}
	return total
}

type Bar struct {
	bar *progressbar.ProgressBar
}

// NewBar renders a byte progress bar to `w`. A size of 0 or less is an
// unknown size and renders a spinner instead.
func NewBar(w io.Writer, description string, size int64) *Bar {
	if size <= 0 {
		size = -1
	}
	bar := progressbar.NewOptions64(
		size,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowBytes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(false),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(w, "\n")
		}),
	)
	return &Bar{bar: bar}
}

func (b *Bar) Add(n int64) {
	b.bar.Add64(n)
}

func (b *Bar) Finish() {
	b.bar.Finish()
}

// Abort leaves the bar where the download stopped instead of filling it.
func (b *Bar) Abort() {
	b.bar.Exit()
}

// Counter is a Sink that only keeps count, for quiet runs.
type Counter struct {
	mutex    sync.Mutex
	total    int64
	adds     int
	finished bool
	aborted  bool
}

func (c *Counter) Add(n int64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.total += n
	c.adds++
}

func (c *Counter) Finish() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.finished = true
}

func (c *Counter) Abort() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.aborted = true
}

func (c *Counter) Total() int64 {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.total
}

// Adds returns how many events the counter received.
func (c *Counter) Adds() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.adds
}

func (c *Counter) Finished() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.finished
}

func (c *Counter) Aborted() bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.aborted
}
