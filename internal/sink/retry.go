package sink

import (
	"errors"
	"time"

	"github.com/sirupsen/logrus"
)

// RetrySink re-attempts failed table writes on the wrapped Sink, pausing
// delay between tries. The last error is returned once attempts run out.
// ErrInvalidName is returned at once.
type RetrySink struct {
	inner    Sink
	attempts int
	delay    time.Duration
	sleep    func(time.Duration)
}

// NewRetrySink wraps inner. attempts below 1 mean a single try.
func NewRetrySink(inner Sink, attempts int, delay time.Duration) *RetrySink {
	if attempts < 1 {
		attempts = 1
	}
	return &RetrySink{
		inner:    inner,
		attempts: attempts,
		delay:    delay,
		sleep:    time.Sleep,
	}
}

func (r *RetrySink) Write(name string, table *Table) error {
	var err error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		err = r.inner.Write(name, table)
		if err == nil || errors.Is(err, ErrInvalidName) {
			return err
		}

		logrus.Warnf("sink write failed (attempt %d/%d): %v", attempt, r.attempts, err)

		if attempt < r.attempts {
			r.sleep(r.delay)
		}
	}
	return err
}
