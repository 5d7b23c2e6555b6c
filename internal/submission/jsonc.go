// Package submission loads and validates the per-subdomain intent files. One
// <subdomain>.json file describes one subdomain: a DNS record or a URL
// redirect. Files may carry // and /* */ comments outside string literals.
// Validation is pure and deterministic; every rejection is scoped to its file
// and never aborts the run.
package submission

// StripComments blanks // line comments and /* */ block comments out of JSONC
// text while preserving string literals and their escapes. Comment bytes are
// replaced with spaces and newlines are kept, so decoder error offsets still
// point at the original document.
func StripComments(src []byte) []byte {
	out := make([]byte, len(src))
	copy(out, src)

	var inString, escaped, inLine, inBlock bool
	for i := 0; i < len(out); i++ {
		c := out[i]
		switch {
		case inLine:
			if c == '\n' {
				inLine = false
				continue
			}
			out[i] = ' '
		case inBlock:
			if c == '*' && i+1 < len(out) && out[i+1] == '/' {
				out[i] = ' '
				out[i+1] = ' '
				i++
				inBlock = false
				continue
			}
			if c != '\n' {
				out[i] = ' '
			}
		case inString:
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
		default:
			switch c {
			case '"':
				inString = true
			case '/':
				if i+1 >= len(out) {
					break
				}
				switch out[i+1] {
				case '/':
					out[i] = ' '
					out[i+1] = ' '
					i++
					inLine = true
				case '*':
					out[i] = ' '
					out[i+1] = ' '
					i++
					inBlock = true
				}
			}
		}
	}
	return out
}
