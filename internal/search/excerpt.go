package search

// Excerpt returns the first maxRunes runes of content, or all of it when shorter.
func Excerpt(content string, maxRunes int) string {
	if maxRunes <= 0 {
		return content
	}
	n := 0
	for i := range content {
		if n == maxRunes {
			return content[:i]
		}
		n++
	}
	return content
}
