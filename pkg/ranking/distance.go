/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: distance.go
Description: Character-bigram distance between terms. Compares a candidate with the
term it replaces, or with its query partner when nothing is replaced, after stripping
path-style term prefixes such as /c/en/.
*/

package ranking

import (
	"strings"

	"github.com/kleascm/chainforge/pkg/core"
	"github.com/kleascm/chainforge/pkg/search"
)

// BigramDistance returns 1 - Jaccard similarity of character bigrams
func BigramDistance(term core.Term, q search.Query, existing core.Term) float64 {
	reference := existing
	if reference == "" {
		reference = q.PartnerTerm
	}
	a, b := bigrams(surface(term)), bigrams(surface(reference))
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	shared := 0
	for gram := range a {
		if _, ok := b[gram]; ok {
			shared++
		}
	}
	union := len(a) + len(b) - shared
	return 1 - float64(shared)/float64(union)
}

// surface strips /c/<lang>/ prefixes and sense suffixes
func surface(term core.Term) string {
	s := string(term)
	if strings.HasPrefix(s, "/c/") {
		parts := strings.Split(s, "/")
		if len(parts) > 3 {
			s = parts[3]
		}
	}
	return strings.ToLower(strings.ReplaceAll(s, "_", " "))
}

func bigrams(s string) map[string]struct{} {
	runes := []rune(s)
	grams := make(map[string]struct{}, len(runes))
	for i := 0; i+1 < len(runes); i++ {
		grams[string(runes[i:i+2])] = struct{}{}
	}
	return grams
}
