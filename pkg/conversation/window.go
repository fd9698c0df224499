package conversation

// DefaultWindowSize is the number of non-initial turns kept when the
// conversation grows beyond the window.
const DefaultWindowSize = 30

// SelectWindow returns the turns that are sent to the completion endpoint.
//
// If there are at most size turns, all of them are returned. Otherwise the
// first turn (the system instruction) is kept, followed by the size most recent
// turns after it, in their original order. A size <= 0 means
// DefaultWindowSize. The input slice is never modified and the result never
// aliases it.
func SelectWindow(turns []Turn, size int) []Turn {
	if size <= 0 {
		size = DefaultWindowSize
	}
	if len(turns) <= size {
		out := make([]Turn, len(turns))
		copy(out, turns)
		return out
	}

	rest := turns[1:]
	if len(rest) > size {
		rest = rest[len(rest)-size:]
	}
	out := make([]Turn, 0, len(rest)+1)
	out = append(out, turns[0])
	out = append(out, rest...)
	return out
}
