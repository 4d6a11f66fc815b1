package ranker

import (
	"fmt"
	"math"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

// Scheme selects the term-frequency weighting. Both schemes multiply by the
// same idf.
type Scheme string

const (
	// Sublinear weights a term occurring f times as 1 + log10(f).
	Sublinear Scheme = "sublinear"
	// Raw weights a term by its plain count.
	Raw Scheme = "raw"
)

// Schemes lists every supported scheme, default first.
var Schemes = []Scheme{Sublinear, Raw}

// ParseScheme resolves a scheme name. The empty string selects Sublinear;
// "standard" is accepted as an alias of Raw.
func ParseScheme(name string) (Scheme, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(Sublinear):
		return Sublinear, nil
	case string(Raw), "standard":
		return Raw, nil
	}
	return "", fmt.Errorf("%w: unknown weighting scheme %q", apperrors.ErrInvalidInput, name)
}

// TFWeight returns the weight of a term occurring f times. It is 0 when f
// is not positive.
func (s Scheme) TFWeight(f int) float64 {
	if f <= 0 {
		return 0
	}
	if s == Raw {
		return float64(f)
	}
	return 1 + math.Log10(float64(f))
}

// IDF returns log10(n/df). A term present in every document gets 0; a term
// with no documents gets 0 rather than infinity.
func IDF(n, df int) float64 {
	if n <= 0 || df <= 0 {
		return 0
	}
	return math.Log10(float64(n) / float64(df))
}
