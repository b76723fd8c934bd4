package ttyloop

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestRuntimeError(t *testing.T) {
	t.Run("when the status is EOF, the name and cause say so", func(t *testing.T) {
		err := newRuntimeError("tty read", StatusEOF)
		require.Equal(t, "EOF", err.Name())
		require.Equal(t, "error calling tty read: end of file (EOF)", err.Error())
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("when the status is a negated errno, the symbolic name is exposed", func(t *testing.T) {
		err := newRuntimeError("tty read", -int(unix.EIO))
		require.Equal(t, "EIO", err.Name())
		require.Contains(t, err.Error(), "error calling tty read:")
		require.Contains(t, err.Error(), "(EIO)")
		require.ErrorIs(t, err, unix.EIO)
	})

	t.Run("when matched with errors.As, the code is recoverable", func(t *testing.T) {
		var rerr *RuntimeError
		wrapped := error(newRuntimeError("tty write", -int(unix.EPIPE)))
		require.ErrorAs(t, wrapped, &rerr)
		require.Equal(t, -int(unix.EPIPE), rerr.Code)
		require.Equal(t, "tty write", rerr.Op)
	})
}

func TestErrorSlot(t *testing.T) {
	t.Run("when multiple errors are recorded, the first wins", func(t *testing.T) {
		var slot ErrorSlot
		first := errors.New("first")
		second := errors.New("second")

		slot.Record(first)
		slot.Record(second)
		require.Same(t, first, slot.Err())
	})

	t.Run("when nil is recorded, the slot stays empty", func(t *testing.T) {
		var slot ErrorSlot
		slot.Record(nil)
		require.NoError(t, slot.Err())

		real := errors.New("real")
		slot.Record(nil)
		slot.Record(real)
		require.Same(t, real, slot.Err())
	})

	t.Run("when read repeatedly, the slot is not consumed", func(t *testing.T) {
		var slot ErrorSlot
		err := errors.New("sticky")
		slot.Record(err)
		require.Same(t, err, slot.Err())
		require.Same(t, err, slot.Err())
	})
}
