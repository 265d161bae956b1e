package report

const ellipsis = "..."

// FitText returns text unchanged when measure(text) fits in maxWidth. Otherwise it
// returns the longest rune prefix of text that fits once "..." is appended, or ""
// when not even the ellipsis fits.
func FitText(text string, maxWidth float64, measure func(string) float64) string {
	if measure(text) <= maxWidth {
		return text
	}

	if measure(ellipsis) > maxWidth {
		return ""
	}

	runes := []rune(text)

	// Largest n in [0, len(runes)) whose prefix plus ellipsis fits.
	lo, hi := 0, len(runes)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if measure(string(runes[:mid])+ellipsis) <= maxWidth {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	return string(runes[:lo]) + ellipsis
}
