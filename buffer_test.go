package ttyloop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferOwnership(t *testing.T) {
	t.Run("when released twice, the second release is refused", func(t *testing.T) {
		buf := NewBuffer(8)
		require.NoError(t, buf.Release())
		require.ErrorIs(t, buf.Release(), ErrBufferReleased)
	})

	t.Run("when the runtime owns the buffer, release is refused", func(t *testing.T) {
		buf := NewBufferString("payload")
		require.NoError(t, buf.toRuntime())
		require.ErrorIs(t, buf.Release(), ErrBufferOwnership)

		require.NoError(t, buf.toCaller())
		require.NoError(t, buf.Release())
	})

	t.Run("when submitted twice without completion, the transfer is refused", func(t *testing.T) {
		buf := NewBuffer(8)
		require.NoError(t, buf.toRuntime())
		require.ErrorIs(t, buf.toRuntime(), ErrBufferOwnership)
	})

	t.Run("when reclaimed without a submission, the transfer is refused", func(t *testing.T) {
		buf := NewBuffer(8)
		require.ErrorIs(t, buf.toCaller(), ErrBufferOwnership)
	})

	t.Run("when already released, a submission is refused", func(t *testing.T) {
		buf := NewBuffer(8)
		require.NoError(t, buf.Release())
		require.ErrorIs(t, buf.toRuntime(), ErrBufferReleased)
	})

	t.Run("when a read fills part of the buffer, only that part is visible", func(t *testing.T) {
		buf := NewBuffer(16)
		require.Equal(t, 16, buf.Len())
		copy(buf.raw(), "abc")
		buf.setLen(3)
		require.Equal(t, []byte("abc"), buf.Bytes())
		require.Equal(t, 3, buf.Len())
	})

	t.Run("when wrapping existing bytes, the content is preserved", func(t *testing.T) {
		buf := NewBufferBytes([]byte{1, 2, 3})
		require.Equal(t, []byte{1, 2, 3}, buf.Bytes())

		str := NewBufferString("hello")
		require.Equal(t, "hello", string(str.Bytes()))
	})
}
