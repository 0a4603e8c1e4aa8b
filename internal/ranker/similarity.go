package ranker

// quickRatio is a character-bag upper bound on sequence similarity in
// [0, 1]: twice the number of common characters (with multiplicity)
// divided by the total length. Cheap enough for the O(n²) pairwise pass
// over a bounded batch.
func quickRatio(a, b string) float64 {
	runesA := []rune(a)
	runesB := []rune(b)

	total := len(runesA) + len(runesB)
	if total == 0 {
		return 1
	}

	avail := make(map[rune]int, len(runesB))
	for _, r := range runesB {
		avail[r]++
	}

	matches := 0
	for _, r := range runesA {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}

	return 2 * float64(matches) / float64(total)
}

// contentPrefix returns the first n characters of s.
func contentPrefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
