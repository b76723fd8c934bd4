package ttyloop

// DefaultGreeting is written to the output handle before the session starts
// echoing.
const DefaultGreeting = "This program echoes anything you type! Try it out (Ctrl+C to quit): "

const defaultReadBufferSize = 4096

type sessOpts struct {
	inputFD        int
	outputFD       int
	readBufferSize int
	greeting       string
	greetingSet    bool
}

type SessionOption func(*sessOpts)

// WithInputFD overrides the file descriptor the session reads from.
// Defaults to stdin. Mostly useful to run a session over a pipe in tests.
func WithInputFD(fd int) SessionOption {
	return func(o *sessOpts) {
		o.inputFD = fd
	}
}

// WithOutputFD overrides the file descriptor the session echoes to.
// Defaults to stdout.
func WithOutputFD(fd int) SessionOption {
	return func(o *sessOpts) {
		o.outputFD = fd
	}
}

// WithReadBufferSize controls the size of the buffers handed to the runtime
// by the session's allocation callback.
func WithReadBufferSize(size int) SessionOption {
	return func(o *sessOpts) {
		if size > 0 {
			o.readBufferSize = size
		}
	}
}

// WithGreeting overrides the banner written before echoing starts. An empty
// greeting suppresses the banner entirely.
func WithGreeting(greeting string) SessionOption {
	return func(o *sessOpts) {
		o.greeting = greeting
		o.greetingSet = true
	}
}
