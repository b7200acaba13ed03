package converter

import "log"

// ProgressSink receives coarse progress of an export.
type ProgressSink interface {
	Progress(label string, done, total int)
}

type logProgress struct{}

func (logProgress) Progress(label string, done, total int) {
	log.Printf("%s (%d/%d)", label, done, total)
}

type nopProgress struct{}

func (nopProgress) Progress(string, int, int) {}

var (
	LogProgress ProgressSink = logProgress{}
	NopProgress ProgressSink = nopProgress{}
)

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(label string, done, total int)

func (f ProgressFunc) Progress(label string, done, total int) {
	f(label, done, total)
}
