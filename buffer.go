package ttyloop

// bufferOwner tracks which side of the callback boundary currently owns a
// Buffer. There is exactly one owner at any instant.
type bufferOwner uint8

const (
	ownedByCaller bufferOwner = iota
	ownedByRuntime
	bufferReleased
)

// Buffer is a heap-allocated byte buffer with explicit ownership-transfer
// semantics. Submitting it for a read or write moves it to the runtime; the
// matching completion callback moves it back, exactly once. Violations are
// reported as errors rather than silently corrupting the payload.
type Buffer struct {
	data   []byte
	length int
	owner  bufferOwner
}

// NewBuffer allocates a caller-owned buffer of the given size.
func NewBuffer(size int) *Buffer {
	return &Buffer{data: make([]byte, size), length: size}
}

// NewBufferBytes wraps b in a caller-owned buffer. The Buffer takes
// ownership of the backing array; the caller MUST NOT touch b afterwards.
func NewBufferBytes(b []byte) *Buffer {
	return &Buffer{data: b, length: len(b)}
}

// NewBufferString allocates a caller-owned buffer holding a copy of s.
func NewBufferString(s string) *Buffer {
	return NewBufferBytes([]byte(s))
}

// Bytes returns the valid portion of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.length]
}

// Len returns the number of valid bytes.
func (b *Buffer) Len() int {
	return b.length
}

// Release returns the buffer's memory to the collector. It fails with
// ErrBufferReleased on a second call and with ErrBufferOwnership while the
// runtime still owns the buffer, making double-free and use-in-flight
// detectable.
func (b *Buffer) Release() error {
	switch b.owner {
	case bufferReleased:
		return ErrBufferReleased
	case ownedByRuntime:
		return ErrBufferOwnership
	}
	b.owner = bufferReleased
	b.data = nil
	b.length = 0
	return nil
}

// toRuntime transfers ownership to the runtime. Called at submission sites
// only.
func (b *Buffer) toRuntime() error {
	switch b.owner {
	case bufferReleased:
		return ErrBufferReleased
	case ownedByRuntime:
		return ErrBufferOwnership
	}
	b.owner = ownedByRuntime
	return nil
}

// toCaller transfers ownership back. Called at completion sites only.
func (b *Buffer) toCaller() error {
	if b.owner != ownedByRuntime {
		return ErrBufferOwnership
	}
	b.owner = ownedByCaller
	return nil
}

// setLen records how many bytes of the buffer a read filled in.
func (b *Buffer) setLen(n int) {
	b.length = n
}

// raw exposes the full capacity for the runtime's read path.
func (b *Buffer) raw() []byte {
	return b.data
}
