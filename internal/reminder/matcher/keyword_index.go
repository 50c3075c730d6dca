package matcher

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
)

type automaton struct {
	signature string
	patterns  []string
	ac        *ahocorasick.Automaton
}

// keywordIndex кеширует автомат Ахо-Корасик для каждой области поиска
// (группы или личного канала) и перестраивает его при изменении набора шаблонов.
type keywordIndex struct {
	mu     sync.Mutex
	scopes map[string]*automaton
}

func newKeywordIndex() *keywordIndex {
	return &keywordIndex{
		scopes: make(map[string]*automaton),
	}
}

// Match возвращает множество найденных в тексте шаблонов в нижнем регистре.
// Совпадение засчитывается только целым словом.
func (k *keywordIndex) Match(scope string, patterns []string, text string) (map[string]bool, error) {
	a, err := k.automaton(scope, patterns)
	if err != nil {
		return nil, err
	}

	if a == nil {
		return nil, nil
	}

	haystack := strings.ToLower(text)
	found := make(map[string]bool)

	for _, m := range a.ac.FindAllOverlapping([]byte(haystack)) {
		if m.PatternID < 0 || m.PatternID >= len(a.patterns) {
			continue
		}

		if isWholeWord(haystack, m.Start, m.End) {
			found[a.patterns[m.PatternID]] = true
		}
	}

	return found, nil
}

// Size возвращает число закешированных автоматов.
func (k *keywordIndex) Size() int {
	k.mu.Lock()
	defer k.mu.Unlock()

	return len(k.scopes)
}

func (k *keywordIndex) automaton(scope string, patterns []string) (*automaton, error) {
	normalized := normalizePatterns(patterns)

	k.mu.Lock()
	defer k.mu.Unlock()

	if len(normalized) == 0 {
		delete(k.scopes, scope)
		return nil, nil
	}

	signature := strings.Join(normalized, "\x00")

	if cached, ok := k.scopes[scope]; ok && cached.signature == signature {
		return cached, nil
	}

	ac, err := ahocorasick.NewBuilder().
		AddStrings(normalized).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, fmt.Errorf("ошибка при построении автомата ключевых слов: %w", err)
	}

	a := &automaton{
		signature: signature,
		patterns:  normalized,
		ac:        ac,
	}
	k.scopes[scope] = a

	return a, nil
}

func normalizePatterns(patterns []string) []string {
	seen := make(map[string]struct{}, len(patterns))
	result := make([]string, 0, len(patterns))

	for _, p := range patterns {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}

		if _, dup := seen[p]; dup {
			continue
		}

		seen[p] = struct{}{}
		result = append(result, p)
	}

	sort.Strings(result)

	return result
}

func isWholeWord(text string, start, end int) bool {
	if start > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:start]); isWordRune(r) {
			return false
		}
	}

	if end < len(text) {
		if r, _ := utf8.DecodeRuneInString(text[end:]); isWordRune(r) {
			return false
		}
	}

	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
