/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: formatter.go
Description: Term formatters for term databases.
*/

package termdb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kleascm/chainforge/pkg/core"
)

// ErrLanguageMismatch is returned for a path term tagged with another language
var ErrLanguageMismatch = errors.New("term language mismatch")

// PathFormatter renders terms as /c/<language>/<lower_snake_case>
type PathFormatter struct{}

// Format implements search.TermFormatter
func (PathFormatter) Format(term core.Term, language string) (core.Term, error) {
	s := string(term)
	prefix := "/c/" + language + "/"
	switch {
	case strings.HasPrefix(s, prefix):
		return core.Term(snake(s)), nil
	case strings.HasPrefix(s, "/c/"):
		return "", fmt.Errorf("term %q for language %q: %w", term, language, ErrLanguageMismatch)
	default:
		return core.Term(prefix + snake(s)), nil
	}
}

// LowerFormatter lowercases and trims terms, ignoring the language
type LowerFormatter struct{}

// Format implements search.TermFormatter
func (LowerFormatter) Format(term core.Term, _ string) (core.Term, error) {
	return core.Term(strings.ToLower(strings.TrimSpace(string(term)))), nil
}

func snake(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}
