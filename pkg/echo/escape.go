// Package echo implements the byte transform used by the echo session:
// raw keystrokes in, printable bytes out.
//
// The transform is pure and byte-oriented: no multi-byte decoding, no
// state. It does not depend on the event loop and can be tested without
// one.
package echo

// Escape maps raw terminal input to a human-visible byte sequence:
//
//   - carriage return (Enter in raw mode) becomes a newline;
//   - control bytes 0x00–0x1A, except TAB, become caret notation:
//     '^' followed by (0x40 | b), e.g. Ctrl+C → "^C";
//   - bytes 0x1B–0x1F become '^' followed by (0x50 | b), e.g. ESC → "^[";
//   - DEL (0x7F) becomes the literal `\d`;
//   - everything else passes through unchanged.
//
// The output always carries a single trailing NUL sentinel, so its length
// is between len(in)+1 and 2*len(in)+1.
//
// quit is true when Ctrl+C (0x03) appears anywhere in the input, wherever
// it sits in the chunk; the escaped output is still produced in full.
func Escape(in []byte) (out []byte, quit bool) {
	out = make([]byte, 0, len(in)*2+1)
	for _, b := range in {
		switch {
		case b == '\r':
			// The enter key sends \r; move down a line instead.
			out = append(out, '\n')

		case b <= 0x1a && b != '\t':
			out = append(out, '^', 0x40|b)
			if b == 0x03 {
				quit = true
			}

		case b >= 0x1b && b <= 0x1f:
			out = append(out, '^', 0x50|b)

		case b == 0x7f:
			out = append(out, '\\', 'd')

		default:
			out = append(out, b)
		}
	}

	// NUL-terminate the "string" for display purposes; the sentinel is part
	// of the written payload.
	out = append(out, 0)
	return out, quit
}
