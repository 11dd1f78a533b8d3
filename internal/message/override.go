package message

import "strings"

// DecodeOverrideCommand parses a local control line of the form
// "<target>,<state>".
//
// Blank lines, lines without a comma and lines with more than one comma
// yield ok=false. Numeric fields are parsed permissively: leading
// whitespace, an optional sign and leading digits are read, anything else
// stops the parse, and a field with no digits is 0. Values are truncated to
// a byte.
func DecodeOverrideCommand(line string) (cmd Command, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, false
	}

	target, state, found := strings.Cut(line, ",")
	if !found || strings.Contains(state, ",") {
		return Command{}, false
	}

	return Command{
		Target: byte(atol(target)),
		State:  byte(atol(state)),
	}, true
}

// atol mirrors the C library's lenient integer parse.
func atol(s string) int64 {
	s = strings.TrimLeft(s, " \t")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}

	var n int64
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int64(c-'0')
		if n > 1<<31 {
			break
		}
	}
	if neg {
		return -n
	}
	return n
}
