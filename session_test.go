package ttyloop

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

type sessionHarness struct {
	adapter *LoopAdapter
	sess    *Session

	inW  *os.File
	outR *os.File
	outW *os.File
}

// newSessionHarness wires a session to two pipe pairs so everything runs
// headless. Input is fed through inW; output is collected with output(),
// which is only valid once the session has shut down.
func newSessionHarness(t *testing.T, opts ...SessionOption) *sessionHarness {
	t.Helper()

	inR, inW := testPipe(t)
	outR, outW := testPipe(t)

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	loop, err := New(WithLog(handler), WithMetricSink(nil))
	require.NoError(t, err)

	adapter := NewLoopAdapter(loop)
	opts = append([]SessionOption{
		WithInputFD(int(inR.Fd())),
		WithOutputFD(int(outW.Fd())),
	}, opts...)
	sess, err := NewSession(adapter, opts...)
	require.NoError(t, err)

	return &sessionHarness{
		adapter: adapter,
		sess:    sess,
		inW:     inW,
		outR:    outR,
		outW:    outW,
	}
}

func (h *sessionHarness) feed(t *testing.T, input string) {
	t.Helper()
	_, err := h.inW.Write([]byte(input))
	require.NoError(t, err)
}

func (h *sessionHarness) output(t *testing.T) string {
	t.Helper()
	require.NoError(t, h.outW.Close())
	data, err := io.ReadAll(h.outR)
	require.NoError(t, err)
	return string(data)
}

func TestSessionEcho(t *testing.T) {
	t.Run("when ctrl-c arrives, input is echoed and the session ends clean", func(t *testing.T) {
		h := newSessionHarness(t)
		h.feed(t, "hi\r\x03")

		require.NoError(t, h.sess.Start())
		require.NoError(t, h.adapter.RunUntilStopped())
		require.NoError(t, h.sess.Shutdown())
		require.NoError(t, h.sess.Err())

		require.Equal(t, DefaultGreeting+"hi\n^C\x00", h.output(t))
	})

	t.Run("when input ends without ctrl-c, the session reports end of file", func(t *testing.T) {
		h := newSessionHarness(t)
		h.feed(t, "ab")
		require.NoError(t, h.inW.Close())

		require.NoError(t, h.sess.Start())
		require.NoError(t, h.adapter.RunUntilStopped())

		err := h.sess.Shutdown()
		require.Error(t, err)
		require.ErrorIs(t, err, io.EOF)
		var rerr *RuntimeError
		require.ErrorAs(t, err, &rerr)
		require.Equal(t, StatusEOF, rerr.Code)

		require.Equal(t, DefaultGreeting+"ab\x00", h.output(t))
	})

	t.Run("when the greeting is empty, none is written", func(t *testing.T) {
		h := newSessionHarness(t, WithGreeting(""))
		h.feed(t, "\x03")

		require.NoError(t, h.sess.Start())
		require.NoError(t, h.adapter.RunUntilStopped())
		require.NoError(t, h.sess.Shutdown())

		require.Equal(t, "^C\x00", h.output(t))
	})

	t.Run("when a custom greeting is set, it precedes the echoes", func(t *testing.T) {
		h := newSessionHarness(t, WithGreeting("go> "))
		h.feed(t, "\x03")

		require.NoError(t, h.sess.Start())
		require.NoError(t, h.adapter.RunUntilStopped())
		require.NoError(t, h.sess.Shutdown())

		require.Equal(t, "go> ^C\x00", h.output(t))
	})
}

func TestSessionLifecycle(t *testing.T) {
	t.Run("when a write is already in flight, a second submission is refused", func(t *testing.T) {
		h := newSessionHarness(t)
		require.NoError(t, h.sess.Start())

		buf := NewBufferString("extra")
		require.ErrorIs(t, h.sess.SubmitWrite(buf), ErrWriteBusy)
		require.NoError(t, buf.Release(), "refused submissions keep caller ownership")

		require.NoError(t, h.sess.Shutdown())
	})

	t.Run("when stopped twice, the second stop is a no-op", func(t *testing.T) {
		h := newSessionHarness(t)
		require.NoError(t, h.sess.Start())
		require.NoError(t, h.sess.Stop())
		require.NoError(t, h.sess.Stop())
		require.NoError(t, h.sess.Shutdown())
	})

	t.Run("when the input is not a terminal, entering raw mode fails", func(t *testing.T) {
		h := newSessionHarness(t)
		require.ErrorIs(t, h.sess.EnterRawMode(), ErrMode)
		require.NoError(t, h.sess.Shutdown())
	})

	t.Run("when a handle cannot bind, no handle leaks", func(t *testing.T) {
		inR, _ := testPipe(t)

		loop := newTestLoop(t)
		adapter := NewLoopAdapter(loop)
		_, err := NewSession(adapter,
			WithInputFD(int(inR.Fd())),
			WithOutputFD(-1),
		)
		require.ErrorIs(t, err, ErrInit)

		adapter.WalkAndCloseAll()
		require.NoError(t, adapter.RunUntilStopped())
		require.NoError(t, adapter.Close())
	})

	t.Run("when shut down twice, the same result comes back", func(t *testing.T) {
		h := newSessionHarness(t)
		h.feed(t, "x")
		require.NoError(t, h.inW.Close())

		require.NoError(t, h.sess.Start())
		require.NoError(t, h.adapter.RunUntilStopped())

		first := h.sess.Shutdown()
		require.ErrorIs(t, first, io.EOF)
		require.Equal(t, first, h.sess.Shutdown())
	})

	t.Run("when the session was released, start is refused", func(t *testing.T) {
		h := newSessionHarness(t)
		h.feed(t, "\x03")
		require.NoError(t, h.sess.Start())
		require.NoError(t, h.adapter.RunUntilStopped())
		require.NoError(t, h.sess.Shutdown())

		require.ErrorIs(t, h.sess.Start(), ErrSessionReleased)
	})
}
