// Package monitoring forwards factory failures to an error tracker. The
// installed Monitor is process-wide; NopMonitor serves until Init is called.
package monitoring

import "time"

// Tag keys attached to captured errors.
const (
	TagOperation = "operation"
	TagReason    = "reason"
	TagComponent = "component"
)

// Monitor receives errors that need human attention.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration)                       {}

var current Monitor = NopMonitor{}

// Init installs m. A nil m keeps the current monitor.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

func Current() Monitor { return current }

// CaptureException records err with tags. Nil errors are ignored.
func CaptureException(err error, tags map[string]string) {
	if err != nil {
		current.CaptureException(err, tags)
	}
}

// CaptureOperation records err for a factory operation. kv lists extra
// tag pairs such as "user", user.String(); an unpaired trailing key is dropped.
func CaptureOperation(op, reason string, err error, kv ...string) {
	tags := make(map[string]string, 2+len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		tags[kv[i]] = kv[i+1]
	}
	tags[TagOperation] = op
	tags[TagReason] = reason
	CaptureException(err, tags)
}

// Flush waits up to d for buffered events to be delivered.
func Flush(d time.Duration) { current.Flush(d) }
