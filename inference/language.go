// SPDX-License-Identifier: EPL-2.0

package inference

import (
	"fmt"
	"slices"
	"strings"
)

// Language is a validated language code.
type Language string

func (l Language) String() string { return string(l) }

// DefaultLanguages is the supported set when none is configured.
var DefaultLanguages = []string{"tr", "en", "fr", "de", "es"}

// LanguageSet is a closed set of accepted codes. The zero value accepts
// nothing.
type LanguageSet struct {
	codes []Language
}

// NewLanguageSet builds a set from codes, which are lowercased.
func NewLanguageSet(codes ...string) (LanguageSet, error) {
	var s LanguageSet
	for _, c := range codes {
		l := Language(strings.ToLower(strings.TrimSpace(c)))
		if l == "" {
			return LanguageSet{}, fmt.Errorf("%w: empty code", ErrUnsupportedLanguage)
		}
		if !slices.Contains(s.codes, l) {
			s.codes = append(s.codes, l)
		}
	}
	slices.Sort(s.codes)

	return s, nil
}

// Parse validates code against the set. Unknown codes are an error; there
// is no fallback language.
func (s LanguageSet) Parse(code string) (Language, error) {
	l := Language(strings.ToLower(strings.TrimSpace(code)))
	if l == "" {
		return "", fmt.Errorf("%w: no language given", ErrUnsupportedLanguage)
	}
	if _, found := slices.BinarySearch(s.codes, l); !found {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, code)
	}
	return l, nil
}

// Codes lists the set in sorted order.
func (s LanguageSet) Codes() []string {
	out := make([]string, len(s.codes))
	for i, l := range s.codes {
		out[i] = string(l)
	}
	return out
}
