// Package fuzzy scores free text against entity titles and short replies.
// Text is compared after accent folding and case folding so "reunião" and
// "Reuniao" are the same word.
package fuzzy

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultThreshold is the minimum title score treated as a match.
const DefaultThreshold = 0.45

// containmentScore is awarded when one normalized string contains the other.
const containmentScore = 0.9

// Normalize lowercases s, strips diacritics and reduces every run of
// non-alphanumeric characters to a single space.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}

// Distance is the optimal string alignment distance between a and b:
// insertions, deletions, substitutions and adjacent transpositions each
// cost one.
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	n, m := len(ra), len(rb)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}
	d := make([][]int, n+1)
	for i := range d {
		d[i] = make([]int, m+1)
		d[i][0] = i
	}
	for j := 0; j <= m; j++ {
		d[0][j] = j
	}
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d[i][j] = min(d[i-1][j]+1, d[i][j-1]+1, d[i-1][j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d[i][j] = min(d[i][j], d[i-2][j-2]+1)
			}
		}
	}
	return d[n][m]
}

// Similarity is 1 minus the distance scaled by the longer string, in [0,1].
func Similarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	longest := max(la, lb)
	if longest == 0 {
		return 1
	}
	return 1 - float64(Distance(a, b))/float64(longest)
}

// Score rates how well query names title, in [0,1]. It takes the best of
// whole-string similarity, containment, and the average of each query
// word's best match among the title's words.
func Score(query, title string) float64 {
	q, t := Normalize(query), Normalize(title)
	if q == "" || t == "" {
		return 0
	}
	if q == t {
		return 1
	}
	best := Similarity(q, t)
	if strings.Contains(t, q) || strings.Contains(q, t) {
		best = max(best, containmentScore)
	}
	qWords, tWords := strings.Fields(q), strings.Fields(t)
	var sum float64
	for _, qw := range qWords {
		var top float64
		for _, tw := range tWords {
			top = max(top, Similarity(qw, tw))
		}
		sum += top
	}
	return max(best, sum/float64(len(qWords)))
}

// Match is a scored candidate.
type Match[T any] struct {
	Item  T
	Score float64
}

// Rank scores every item's title against query, keeps those at or above
// threshold and orders them best first. Ties keep input order.
func Rank[T any](query string, items []T, title func(T) string, threshold float64) []Match[T] {
	var out []Match[T]
	for _, it := range items {
		if s := Score(query, title(it)); s >= threshold {
			out = append(out, Match[T]{Item: it, Score: s})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
