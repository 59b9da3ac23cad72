package odom

import (
	"errors"
	"log/slog"
	"time"
)

// Recorder keeps records and transforms in memory, optionally bounded to the
// most recent Capacity entries.
type Recorder struct {
	Capacity   int
	Records    []Record
	Transforms []Transform
}

func NewRecorder(capacity int) *Recorder {
	return &Recorder{Capacity: capacity}
}

func (r *Recorder) Publish(rec Record) error {
	r.Records = append(r.Records, rec)
	if r.Capacity > 0 && len(r.Records) > r.Capacity {
		r.Records = r.Records[len(r.Records)-r.Capacity:]
	}
	return nil
}

func (r *Recorder) SendTransform(t Transform) error {
	r.Transforms = append(r.Transforms, t)
	if r.Capacity > 0 && len(r.Transforms) > r.Capacity {
		r.Transforms = r.Transforms[len(r.Transforms)-r.Capacity:]
	}
	return nil
}

// Last returns the newest record.
func (r *Recorder) Last() (Record, bool) {
	if len(r.Records) == 0 {
		return Record{}, false
	}
	return r.Records[len(r.Records)-1], true
}

func (r *Recorder) Reset() {
	r.Records = r.Records[:0]
	r.Transforms = r.Transforms[:0]
}

// Channel hands records to a consumer goroutine. A full buffer drops the
// record instead of stalling the tick.
type Channel struct {
	C          chan Record
	Transforms chan Transform
}

func NewChannel(buffer int) *Channel {
	return &Channel{
		C:          make(chan Record, buffer),
		Transforms: make(chan Transform, buffer),
	}
}

func (c *Channel) Publish(r Record) error {
	select {
	case c.C <- r:
		return nil
	default:
		return ErrDropped
	}
}

func (c *Channel) SendTransform(t Transform) error {
	select {
	case c.Transforms <- t:
		return nil
	default:
		return ErrDropped
	}
}

// LogPublisher writes a record to the log at most once per Every.
type LogPublisher struct {
	Logger *slog.Logger
	Every  time.Duration

	last time.Time
}

func (l *LogPublisher) Publish(r Record) error {
	if !l.last.IsZero() && r.Stamp.Sub(l.last) < l.Every {
		return nil
	}
	l.last = r.Stamp
	l.Logger.Info("odometry",
		"x", r.X, "y", r.Y,
		"heading", NormalizeAngle(r.Theta),
		"linear", r.Linear, "angular", r.Angular)
	return nil
}

// Multi fans a record out to several publishers. Every publisher is called;
// errors are joined.
type Multi []Publisher

func (m Multi) Publish(r Record) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Publisher   = (*Recorder)(nil)
	_ Broadcaster = (*Recorder)(nil)
	_ Publisher   = (*Channel)(nil)
	_ Broadcaster = (*Channel)(nil)
	_ Publisher   = (*LogPublisher)(nil)
	_ Publisher   = Multi(nil)
)
