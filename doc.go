// `ttyloop` is a single-threaded, callback-driven event loop for terminal
// I/O, in the spirit of libuv, plus a raw-mode echo `Session` built on top
// of it.
//
// ## How it works
//
// A `Loop` owns a platform poller (epoll on Linux, kqueue on Darwin) and a
// set of `TTY` handles. `Loop.Run` drives everything: it dispatches read
// callbacks, flushes pending writes, fires close callbacks, and returns once
// no active handle or pending close remains (or once `Loop.Stop` was called
// from inside a callback).
//
// Closing a handle is asynchronous: `TTY.Close` only marks the handle, the
// file descriptor is released and the close callback fired on a later loop
// turn. This is why a clean teardown runs the loop *twice*: once until the
// session stops, then again after `Loop.Walk`-ing every handle into the
// closing state. `LoopAdapter` packages that dance behind three calls.
//
// The `Session` is the reference consumer: it binds stdin and stdout, puts
// the terminal into raw mode, and echoes every keystroke back with control
// characters made visible (see [github.com/raskyld/ttyloop/pkg/echo]).
// Ctrl+C, or any read error, tears the session down through a fixed,
// best-effort shutdown sequence that always restores the user's terminal.
//
// ## Design Principles
//
// > `ttyloop` is **single-threaded**, **explicit about ownership**, and
// > **minimalist**.
//
// ### Single-Threaded
//
// There is exactly one logical thread of control: the goroutine blocked in
// `Loop.Run`. Callbacks never run concurrently with each other, so nothing
// in this package takes a lock. Methods on `Loop`, `TTY` and `Session` MUST
// only be called from the loop goroutine (before `Run`, after `Run`
// returns, or inside a callback).
//
// ### Explicit Ownership
//
// Read and write buffers cross the callback boundary as `Buffer` values
// with a tracked owner. Submitting a write moves the buffer to the runtime;
// the completion callback moves it back. A buffer has exactly one owner at
// any instant and double-release is detected, not silently absorbed.
//
// ### Minimalist
//
// Dependencies SHOULD be *kept* minimal, actually, I can enumerate them:
//
//   - [`golang.org/x/sys`][dep-sys], for the epoll/kqueue pollers and raw
//     fd reads and writes.
//   - [`golang.org/x/term`][dep-term], to switch the terminal in and out of
//     raw mode without hand-rolled termios.
//   - [`hashicorp/go-metrics`][dep-met], to let you chose how to collect
//     telemetry.
//
// [dep-sys]: https://pkg.go.dev/golang.org/x/sys
// [dep-term]: https://pkg.go.dev/golang.org/x/term
// [dep-met]: https://pkg.go.dev/github.com/hashicorp/go-metrics
package ttyloop
