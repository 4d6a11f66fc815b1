// Package tokenizer turns raw text into normalised terms. An Analyzer
// applies NFKC normalization, lower-cases input, splits on non-alphanumeric
// boundaries, removes stop-words and stems what is left, either with a small
// suffix-stripping stemmer or a snowball stemmer. The same Analyzer must be
// used for indexing and for querying.
package tokenizer

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kljensen/snowball"
	"golang.org/x/text/unicode/norm"

	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
)

var builtinStopWords = []string{
	"a", "an", "and", "are", "as", "at",
	"be", "by", "for", "from", "has", "he",
	"in", "is", "it", "its", "of", "on",
	"or", "that", "the", "to", "was", "were",
	"will", "with", "this", "but", "they",
	"have", "had", "what", "when", "where",
	"who", "which", "their", "if", "each",
	"do", "not", "no", "so", "can",
}

// Analyzer is an immutable normalisation pipeline. It is safe for concurrent
// use.
type Analyzer struct {
	lowercase   bool
	nfkc        bool
	stripDigits bool
	stem        bool
	stemmer     string
	minLength   int
	stopWords   map[string]struct{}
	fingerprint string
}

// New builds an Analyzer from cfg. An empty or unknown stemmer name falls
// back to the suffix stemmer; config.Validate rejects unknown names earlier.
func New(cfg config.AnalyzerConfig) *Analyzer {
	a := &Analyzer{
		lowercase:   cfg.Lowercase,
		nfkc:        cfg.UnicodeNormalize,
		stripDigits: cfg.StripDigits,
		stem:        cfg.Stem,
		stemmer:     config.StemmerSuffix,
		minLength:   cfg.MinLength,
		stopWords:   make(map[string]struct{}),
	}
	if slices.Contains(config.SnowballLanguages, cfg.Stemmer) {
		a.stemmer = cfg.Stemmer
	}
	if a.minLength < 1 {
		a.minLength = 1
	}
	if cfg.Stopwords != "none" {
		for _, w := range builtinStopWords {
			a.stopWords[w] = struct{}{}
		}
	}
	for _, w := range cfg.ExtraStopwords {
		a.stopWords[strings.ToLower(w)] = struct{}{}
	}
	a.fingerprint = a.computeFingerprint()
	return a
}

// Default returns the Analyzer used when no configuration is given.
func Default() *Analyzer {
	return New(config.Default().Analyzer)
}

// Normalize returns the ordered term sequence for text. Empty text, or text
// made only of stop-words and punctuation, yields an empty slice.
func (a *Analyzer) Normalize(text string) []string {
	if a.nfkc {
		text = norm.NFKC.String(text)
	}
	if a.lowercase {
		text = strings.ToLower(text)
	}
	words := strings.FieldsFunc(text, a.isSeparator)
	terms := make([]string, 0, len(words))
	for _, word := range words {
		if utf8.RuneCountInString(word) < a.minLength {
			continue
		}
		if a.isStopWord(word) {
			continue
		}
		if a.stem {
			word = a.stemWord(word)
		}
		if word == "" {
			continue
		}
		terms = append(terms, word)
	}
	return terms
}

// isStopWord matches case-insensitively, so a case-preserving analyzer
// still drops "The".
func (a *Analyzer) isStopWord(word string) bool {
	if !a.lowercase {
		word = strings.ToLower(word)
	}
	_, ok := a.stopWords[word]
	return ok
}

// Fingerprint identifies the analyzer configuration. Two analyzers with the
// same fingerprint produce identical output for every input.
func (a *Analyzer) Fingerprint() string {
	return a.fingerprint
}

func (a *Analyzer) isSeparator(r rune) bool {
	if unicode.IsLetter(r) {
		return false
	}
	if unicode.IsDigit(r) {
		return a.stripDigits
	}
	return true
}

func (a *Analyzer) computeFingerprint() string {
	stops := make([]string, 0, len(a.stopWords))
	for w := range a.stopWords {
		stops = append(stops, w)
	}
	sort.Strings(stops)
	return fmt.Sprintf("lower=%t;nfkc=%t;stripdigits=%t;stem=%t;stemmer=%s;min=%d;stop=%s",
		a.lowercase, a.nfkc, a.stripDigits, a.stem, a.stemmer, a.minLength, strings.Join(stops, ","))
}

// stemWord applies the configured stemmer. Snowball stemmers lower-case
// their input, so a case-preserving analyzer only keeps case with the
// suffix stemmer.
func (a *Analyzer) stemWord(word string) string {
	if a.stemmer == config.StemmerSuffix {
		return stem(word)
	}
	stemmed, err := snowball.Stem(word, a.stemmer, true)
	if err != nil {
		return stem(word)
	}
	return stemmed
}

var suffixes = []struct {
	suffix      string
	replacement string
	minLen      int
}{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// stem applies a simple suffix-stripping stemmer to the given word. Only the
// first matching rule whose result is long enough is applied.
func stem(word string) string {
	for _, rule := range suffixes {
		if strings.HasSuffix(word, rule.suffix) {
			newWord := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(newWord) >= rule.minLen {
				return newWord
			}
		}
	}
	return word
}
