// Package sanitize cleans the narrow non-message fields: author names,
// attachment filenames, and URLs. These cleaners are stricter than
// message validation; they reduce input to a known-safe shape rather
// than classify it.
package sanitize

import (
	"html"
	"net/url"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"

	"github.com/chatguard/chatguard/internal/normalize"
	"github.com/chatguard/chatguard/internal/threat"
)

const (
	maxAuthor   = 80
	maxFilename = 100
)

var strict = bluemonday.StrictPolicy()

var allowedImageTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// Author normalizes a display name to letters, digits, spaces, and a
// small punctuation set, capped at 80 runes. Markup is stripped
// first, so script content cannot survive into the allowed character
// class. Author is idempotent.
func Author(name string) string {
	// StrictPolicy entity-escapes the text it keeps; unescape so the
	// character filter sees literal runes.
	cleaned := html.UnescapeString(strict.Sanitize(name))
	cleaned = norm.NFC.String(cleaned)

	var b strings.Builder
	for _, r := range cleaned {
		switch {
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		case allowedAuthorRune(r):
			b.WriteRune(r)
		}
	}

	collapsed := strings.Join(strings.Fields(b.String()), " ")
	runes := []rune(collapsed)
	if len(runes) > maxAuthor {
		collapsed = strings.TrimSpace(string(runes[:maxAuthor]))
	}
	return collapsed
}

func allowedAuthorRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '.', ',', '\'', '-', '_':
		return true
	}
	return false
}

// Filename reduces a client-supplied filename to its final path
// segment with filesystem-hostile characters removed. Percent
// encoding is resolved first so encoded traversal sequences are seen
// as path separators. The result is never empty: unusable names fall
// back to a generated placeholder.
func Filename(name string) string {
	decoded := normalize.Apply(name, normalize.Options{PercentDecode: true}).Normalized
	segment := lastSegment(decoded)

	var b strings.Builder
	for _, r := range segment {
		if r < 0x20 || r == 0x7f {
			continue
		}
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			continue
		}
		b.WriteRune(r)
	}

	cleaned := strings.Trim(b.String(), ". ")
	runes := []rune(cleaned)
	if len(runes) > maxFilename {
		cleaned = strings.Trim(string(runes[:maxFilename]), ". ")
	}
	if cleaned == "" {
		return "attachment-" + uuid.NewString()[:8]
	}
	return cleaned
}

// lastSegment walks the name as a path and returns the final
// component, ignoring empty, ".", and ".." entries.
func lastSegment(name string) string {
	segments := strings.FieldsFunc(name, func(r rune) bool {
		return r == '/' || r == '\\'
	})
	for i := len(segments) - 1; i >= 0; i-- {
		if s := segments[i]; s != "." && s != ".." {
			return s
		}
	}
	return ""
}

// ValidateURL reports whether a URL is safe to render as a link or
// image source. Only http and https are accepted, plus data URIs
// carrying an allowlisted image type. Known link-shortener hosts are
// rejected because they defeat the reputation checks a reader would
// apply to a visible hostname.
func ValidateURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return false
		}
		return !shortenerHost(strings.ToLower(u.Hostname()))
	case "data":
		return allowedImageData(u.Opaque)
	default:
		return false
	}
}

func shortenerHost(host string) bool {
	for _, s := range threat.ShortenerHosts {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

func allowedImageData(opaque string) bool {
	mime := opaque
	if i := strings.IndexAny(mime, ";,"); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.ToLower(strings.TrimSpace(mime))
	for _, t := range allowedImageTypes {
		if mime == t {
			return true
		}
	}
	return false
}
