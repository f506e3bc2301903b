package intel

import (
	"sort"
	"strings"
)

// tokenSortRatio scores the similarity of two names 0..100: both sides are
// case-folded, tokenised and re-joined in sorted order, then compared by
// normalised edit distance. Token sorting makes "Salah Mohamed" and
// "Mohamed Salah" equal.
func tokenSortRatio(a, b string) int {
	sa := sortedTokens(a)
	sb := sortedTokens(b)
	if sa == "" || sb == "" {
		return 0
	}
	if sa == sb {
		return 100
	}

	dist := levenshtein(sa, sb)
	longer := len(sa)
	if len(sb) > longer {
		longer = len(sb)
	}
	return int(100 * (1 - float64(dist)/float64(longer)))
}

func sortedTokens(s string) string {
	tokens := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func levenshtein(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
