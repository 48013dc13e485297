package utils

// TruncatePreview shortens s to at most max runes. Cutting on a rune
// boundary keeps multi-byte text valid UTF-8.
func TruncatePreview(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
