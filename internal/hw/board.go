package hw

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Serial line protocol, newline terminated ASCII:
//
//	host  -> board: S <L|R> <rad_per_sec>
//	board -> host:  E <left_pos> <right_pos> <left_vel> <right_vel>
const (
	feedbackTag = "E"
	setpointTag = "S"
)

var (
	ErrBadFrame = errors.New("hw: malformed feedback frame")
	// ErrNoFeedback indicates the board has not sent an encoder frame yet.
	ErrNoFeedback = errors.New("hw: no feedback from board yet")
)

// Port is the minimal surface of a serial port the board needs.
type Port interface {
	io.ReadWriter
	io.Closer
}

type Wheel int

const (
	LeftWheel Wheel = iota
	RightWheel
)

func (w Wheel) String() string {
	if w == LeftWheel {
		return "L"
	}
	return "R"
}

// Feedback is one decoded encoder frame.
type Feedback struct {
	Position [2]float64
	Velocity [2]float64
	At       time.Time
}

// Board is a two-channel motor controller on a serial link. A reader goroutine
// keeps the most recent feedback frame; joint reads return that cached frame
// and never touch the port.
type Board struct {
	port   Port
	logger *slog.Logger

	mu       sync.Mutex
	latest   Feedback
	frames   uint64
	badLines uint64

	writeMu sync.Mutex
	first   chan struct{}
	done    chan struct{}
}

// OpenBoard opens the serial device at path. A positive readTimeout lets the
// reader loop notice cancellation while the board is silent.
func OpenBoard(path string, baud int, readTimeout time.Duration, logger *slog.Logger) (*Board, error) {
	port, err := serial.Open(path, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if readTimeout > 0 {
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			return nil, fmt.Errorf("set read timeout on %s: %w", path, err)
		}
	}
	return NewBoard(port, logger), nil
}

func NewBoard(port Port, logger *slog.Logger) *Board {
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{
		port:   port,
		logger: logger.With("component", "board"),
		first:  make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Start runs the reader loop until ctx is canceled or the port fails. The port
// is closed when the loop exits.
func (b *Board) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		b.port.Close()
	}()
	go b.readLoop(ctx)
}

// Done is closed once the reader loop has exited.
func (b *Board) Done() <-chan struct{} { return b.done }

func (b *Board) readLoop(ctx context.Context) {
	defer close(b.done)
	r := bufio.NewReader(b.port)
	for {
		line, err := r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			b.handleLine(line)
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		// A read timeout shows up as empty reads.
		if errors.Is(err, io.ErrNoProgress) {
			continue
		}
		if !errors.Is(err, io.EOF) {
			b.logger.Warn("serial read failed", "err", err)
		}
		return
	}
}

func (b *Board) handleLine(line string) {
	fb, err := ParseFeedback(line)
	if err != nil {
		b.mu.Lock()
		b.badLines++
		b.mu.Unlock()
		b.logger.Debug("ignoring line", "line", line, "err", err)
		return
	}
	fb.At = time.Now()
	b.mu.Lock()
	b.latest = fb
	b.frames++
	if b.frames == 1 {
		close(b.first)
	}
	b.mu.Unlock()
}

// WaitFirstFrame blocks until the first feedback frame has been decoded. It
// fails if the reader exits or the wait is cut short by ctx or timeout.
func (b *Board) WaitFirstFrame(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-b.first:
		return nil
	case <-b.done:
		// The last line read may have been the first frame.
		select {
		case <-b.first:
			return nil
		default:
		}
		return fmt.Errorf("%w: reader exited", ErrNoFeedback)
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrNoFeedback, ctx.Err())
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrNoFeedback, timeout)
	}
}

// ParseFeedback decodes an "E" frame.
func ParseFeedback(line string) (Feedback, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 || fields[0] != feedbackTag {
		return Feedback{}, fmt.Errorf("%w: %q", ErrBadFrame, line)
	}
	var vals [4]float64
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Feedback{}, fmt.Errorf("%w: field %d: %v", ErrBadFrame, i+1, err)
		}
		vals[i] = v
	}
	return Feedback{
		Position: [2]float64{vals[0], vals[1]},
		Velocity: [2]float64{vals[2], vals[3]},
	}, nil
}

// Latest returns the most recent feedback frame and how many frames have been
// decoded so far.
func (b *Board) Latest() (Feedback, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.latest, b.frames
}

func (b *Board) setVelocity(w Wheel, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("hw: refusing non-finite setpoint %v for wheel %s", v, w)
	}
	frame := setpointTag + " " + w.String() + " " + strconv.FormatFloat(v, 'f', 4, 64) + "\n"
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if _, err := io.WriteString(b.port, frame); err != nil {
		return fmt.Errorf("write %s setpoint: %w", w, err)
	}
	return nil
}

// Joint returns the handle for one wheel channel.
func (b *Board) Joint(w Wheel) Joint { return boardJoint{board: b, wheel: w} }

var _ Readier = boardJoint{}

// Joints returns a Set naming the two channels.
func (b *Board) Joints(left, right string) Set {
	return Set{left: b.Joint(LeftWheel), right: b.Joint(RightWheel)}
}

type boardJoint struct {
	board *Board
	wheel Wheel
}

func (j boardJoint) Position() float64 {
	fb, _ := j.board.Latest()
	return fb.Position[j.wheel]
}

func (j boardJoint) Velocity() float64 {
	fb, _ := j.board.Latest()
	return fb.Velocity[j.wheel]
}

// Ready fails until the board has reported positions, so a controller never
// primes odometry from the zero value.
func (j boardJoint) Ready() error {
	if _, n := j.board.Latest(); n == 0 {
		return ErrNoFeedback
	}
	return nil
}

func (j boardJoint) SetVelocity(v float64) error { return j.board.setVelocity(j.wheel, v) }
