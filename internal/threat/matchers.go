package threat

import "strings"

// DataURIMatcher flags data: URIs whose media type is not on the
// allowlist. Regular expressions cannot express the negative check, so
// the scan is done by hand.
type DataURIMatcher struct {
	allowed []string
}

func NewDataURIMatcher(allowed []string) *DataURIMatcher {
	return &DataURIMatcher{allowed: append([]string(nil), allowed...)}
}

func (m *DataURIMatcher) Match(input string) (bool, string) {
	const prefix = "data:"

	lower := strings.ToLower(input)
	offset := 0
	for {
		idx := strings.Index(lower[offset:], prefix)
		if idx < 0 {
			return false, ""
		}
		start := offset + idx
		mime := mediaType(lower[start+len(prefix):])
		if mime != "" && !m.allowedType(mime) {
			end := start + len(prefix) + len(mime)
			return true, snippet(lower[start:end])
		}
		offset = start + len(prefix)
	}
}

func (m *DataURIMatcher) allowedType(mime string) bool {
	for _, allowed := range m.allowed {
		if mime == allowed {
			return true
		}
	}
	return false
}

// mediaType returns the leading media type of a data: URI payload, up to
// the first delimiter. Empty when the colon is not followed by a type,
// which keeps plain prose like "data: 42" from matching.
func mediaType(rest string) string {
	const maxType = 64

	for i := 0; i < len(rest) && i < maxType; i++ {
		switch rest[i] {
		case ';', ',':
			return rest[:i]
		case ' ', '\t', '\r', '\n', '"', '\'', '<', '>':
			return rest[:i]
		}
	}
	if len(rest) > maxType {
		return rest[:maxType]
	}
	return rest
}

// RepeatMatcher flags a run of the same character at or above minRun.
// RE2 has no backreferences, so runs are counted directly.
type RepeatMatcher struct {
	minRun int
}

func NewRepeatMatcher(minRun int) *RepeatMatcher {
	if minRun <= 0 {
		minRun = 100
	}
	return &RepeatMatcher{minRun: minRun}
}

func (m *RepeatMatcher) Match(input string) (bool, string) {
	var prev rune
	run := 0
	for _, r := range input {
		if r == prev {
			run++
		} else {
			prev = r
			run = 1
		}
		if run == m.minRun {
			return true, snippet(strings.Repeat(string(r), m.minRun))
		}
	}
	return false, ""
}
