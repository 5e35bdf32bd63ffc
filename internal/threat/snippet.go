package threat

const maxEvidence = 64

func snippet(value string) string {
	runes := []rune(value)
	if len(runes) <= maxEvidence {
		return value
	}
	return string(runes[:maxEvidence])
}
