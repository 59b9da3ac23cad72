package hw

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pipePort feeds canned board output to the reader and captures writes.
type pipePort struct {
	r *io.PipeReader
	w *io.PipeWriter

	mu      sync.Mutex
	written bytes.Buffer
}

func newPipePort() *pipePort {
	r, w := io.Pipe()
	return &pipePort{r: r, w: w}
}

func (p *pipePort) Read(b []byte) (int, error) { return p.r.Read(b) }

func (p *pipePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.Write(b)
}

func (p *pipePort) Close() error { return p.r.Close() }

func (p *pipePort) Written() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func TestParseFeedback(t *testing.T) {
	fb, err := ParseFeedback("E 1.5 -2.25 0.5 -0.5")
	require.NoError(t, err)
	assert.Equal(t, [2]float64{1.5, -2.25}, fb.Position)
	assert.Equal(t, [2]float64{0.5, -0.5}, fb.Velocity)

	for _, line := range []string{"", "E 1 2 3", "X 1 2 3 4", "E 1 2 three 4"} {
		_, err := ParseFeedback(line)
		assert.ErrorIs(t, err, ErrBadFrame, "line %q", line)
	}
}

func TestBoardReadsLatestFrame(t *testing.T) {
	port := newPipePort()
	board := NewBoard(port, nil)
	ctx, cancel := context.WithCancel(context.Background())
	board.Start(ctx)

	_, err := io.WriteString(port.w, "hello\nE 1 2 3 4\nE 10 20 30 40\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, n := board.Latest()
		return n == 2
	}, time.Second, 5*time.Millisecond)

	joints := board.Joints("left", "right")
	left, err := joints.Joint("left")
	require.NoError(t, err)
	right, err := joints.Joint("right")
	require.NoError(t, err)
	assert.Equal(t, 10.0, left.Position())
	assert.Equal(t, 20.0, right.Position())
	assert.Equal(t, 30.0, left.Velocity())
	assert.Equal(t, 40.0, right.Velocity())

	cancel()
	select {
	case <-board.Done():
	case <-time.After(time.Second):
		t.Fatal("reader loop did not exit after cancel")
	}
}

func TestBoardWaitFirstFrame(t *testing.T) {
	port := newPipePort()
	board := NewBoard(port, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	board.Start(ctx)

	joint := board.Joint(LeftWheel).(Readier)
	assert.ErrorIs(t, joint.Ready(), ErrNoFeedback)
	assert.ErrorIs(t, board.WaitFirstFrame(ctx, 20*time.Millisecond), ErrNoFeedback)

	go func() { _, _ = io.WriteString(port.w, "E 350 -350 0 0\n") }()
	require.NoError(t, board.WaitFirstFrame(ctx, time.Second))
	assert.NoError(t, joint.Ready())
	assert.NoError(t, CheckReady(board.Joint(LeftWheel), board.Joint(RightWheel)))
	assert.Equal(t, 350.0, board.Joint(LeftWheel).Position())
}

func TestBoardWaitFirstFrameReaderExit(t *testing.T) {
	port := newPipePort()
	board := NewBoard(port, nil)
	board.Start(context.Background())
	require.NoError(t, port.w.Close())

	assert.ErrorIs(t, board.WaitFirstFrame(context.Background(), time.Second), ErrNoFeedback)
}

func TestDummyKeepsRecentSetpoints(t *testing.T) {
	d := NewDummy("left", nil)
	for i := range 3 * dummyHistory {
		require.NoError(t, d.SetVelocity(float64(i)))
	}
	assert.Len(t, d.Setpoints, dummyHistory)
	last, ok := d.Last()
	assert.True(t, ok)
	assert.Equal(t, float64(3*dummyHistory-1), last)
	assert.NoError(t, CheckReady(d), "dummy joints are always ready")
}

func TestBoardWritesSetpoints(t *testing.T) {
	port := newPipePort()
	board := NewBoard(port, nil)

	require.NoError(t, board.Joint(LeftWheel).SetVelocity(8.75))
	require.NoError(t, board.Joint(RightWheel).SetVelocity(-1))
	assert.Equal(t, "S L 8.7500\nS R -1.0000\n", port.Written())
}

func TestSetLookup(t *testing.T) {
	set := Set{"a": NewDummy("a", nil)}
	_, err := set.Joint("b")
	assert.ErrorIs(t, err, ErrUnknownJoint)
	j, err := set.Joint("a")
	require.NoError(t, err)
	require.NoError(t, j.SetVelocity(2))
	last, ok := set["a"].(*Dummy).Last()
	assert.True(t, ok)
	assert.Equal(t, 2.0, last)
}
