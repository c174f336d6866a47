package keyword

import (
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Suggestion represents a spelling suggestion with its score.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
	Score     float64
}

// SpellChecker suggests corrected queries from the words of the ingested document.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	minTermLength  int
	maxSuggestions int

	termsCache []string
	termSet    map[string]struct{}
	cacheMu    sync.RWMutex
	cacheValid bool
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores dictionary terms seen in fewer chunks than f.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions to return per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// WithMinTermLength skips query words shorter than n runes (articles, prepositions).
func WithMinTermLength(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.minTermLength = n
		}
	}
}

// NewSpellChecker creates a new SpellChecker with the given dictionary.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		minTermLength:  4,
		maxSuggestions: 5,
		termSet:        make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RefreshCache reloads the term cache from the dictionary.
func (s *SpellChecker) RefreshCache() error {
	terms, err := s.dictionary.GetAllTerms()
	if err != nil {
		return err
	}
	sort.Strings(terms)

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.termsCache = terms
	s.termSet = make(map[string]struct{}, len(terms))
	for _, t := range terms {
		s.termSet[strings.ToLower(t)] = struct{}{}
	}
	s.cacheValid = true
	return nil
}

func (s *SpellChecker) ensureCache() bool {
	s.cacheMu.RLock()
	valid := s.cacheValid
	s.cacheMu.RUnlock()
	if valid {
		return true
	}
	return s.RefreshCache() == nil
}

// Suggest returns spelling suggestions for a single term, best first.
func (s *SpellChecker) Suggest(term string) []Suggestion {
	if !s.ensureCache() {
		return nil
	}
	termLower := strings.ToLower(term)
	termLen := utf8.RuneCountInString(termLower)

	s.cacheMu.RLock()
	terms := s.termsCache
	s.cacheMu.RUnlock()

	suggestions := make([]Suggestion, 0)
	for _, dictTerm := range terms {
		if dictTerm == termLower {
			continue
		}
		lenDiff := utf8.RuneCountInString(dictTerm) - termLen
		if lenDiff < 0 {
			lenDiff = -lenDiff
		}
		if lenDiff > s.maxDistance {
			continue
		}
		distance := DamerauLevenshteinDistance(termLower, dictTerm)
		if distance > s.maxDistance {
			continue
		}
		freq, err := s.dictionary.GetTermFrequency(dictTerm)
		if err != nil || freq < s.minFreq {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Term:      dictTerm,
			Distance:  distance,
			Frequency: freq,
			Score:     float64(freq) / float64(distance+1),
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Term < suggestions[j].Term
	})
	if len(suggestions) > s.maxSuggestions {
		suggestions = suggestions[:s.maxSuggestions]
	}
	return suggestions
}

// IsMisspelled reports whether term is absent from the dictionary.
func (s *SpellChecker) IsMisspelled(term string) bool {
	if !s.ensureCache() {
		return false
	}
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	_, exists := s.termSet[strings.ToLower(term)]
	return !exists
}

// SuggestQueries returns up to n corrected versions of query. The first one
// replaces every misspelled word with its best suggestion; later ones swap
// in the runner-up suggestions one word at a time.
func (s *SpellChecker) SuggestQueries(query string, n int) []string {
	if n <= 0 || !s.ensureCache() {
		return nil
	}
	terms := tokenizeQuery(query)
	best := make([]string, len(terms))
	alternatives := make(map[int][]Suggestion)
	corrected := false
	for i, term := range terms {
		best[i] = term
		if utf8.RuneCountInString(term) < s.minTermLength || !s.IsMisspelled(term) {
			continue
		}
		suggestions := s.Suggest(term)
		if len(suggestions) == 0 {
			continue
		}
		best[i] = suggestions[0].Term
		alternatives[i] = suggestions[1:]
		corrected = true
	}
	if !corrected {
		return nil
	}

	out := []string{strings.Join(best, " ")}
	seen := map[string]struct{}{out[0]: {}}
	for i := range terms {
		for _, alt := range alternatives[i] {
			if len(out) >= n {
				return out
			}
			variant := make([]string, len(best))
			copy(variant, best)
			variant[i] = alt.Term
			q := strings.Join(variant, " ")
			if _, dup := seen[q]; dup {
				continue
			}
			seen[q] = struct{}{}
			out = append(out, q)
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// tokenizeQuery lower-cases query and splits it into letter/digit words.
func tokenizeQuery(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
