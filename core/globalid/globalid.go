package globalid

import (
	"strconv"
	"strings"
)

// Separator delimits segments and length markers.
const Separator = "::"

// Encode returns the global id of id nested under pids, innermost parent first.
func Encode(id string, pids ...string) string {
	var b strings.Builder
	b.WriteString(id)

	prev := len(id)
	for _, pid := range pids {
		b.WriteString(Separator)
		b.WriteString(strconv.Itoa(prev))
		b.WriteString(Separator)
		b.WriteString(pid)
		prev = len(pid)
	}

	return b.String()
}

// Decode splits a global id into its local id and parent ids.
// It is the inverse of Encode.
func Decode(gid string) (string, []string) {
	tokens := strings.Split(gid, Separator)

	var segments []string
	current := tokens[0]

	for i := 1; i < len(tokens); i++ {
		tok := tokens[i]
		if i+1 < len(tokens) && isMarker(tok, len(current)) {
			segments = append(segments, current)
			i++
			current = tokens[i]
			continue
		}
		// literal separator inside an id
		current += Separator + tok
	}
	segments = append(segments, current)

	pids := segments[1:]
	if len(pids) == 0 {
		pids = nil
	}
	return segments[0], pids
}

// isMarker reports whether tok is the canonical decimal form of n.
func isMarker(tok string, n int) bool {
	v, err := strconv.Atoi(tok)
	if err != nil || v != n {
		return false
	}
	return strconv.Itoa(v) == tok
}
