package evaluation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

// Query modes a judgment can target.
const (
	ModeBoolean = "boolean"
	ModeVSM     = "vsm"
)

// Judgment lists the documents relevant to one query. Documents are named
// the way the corpus names them, e.g. the file path relative to the corpus
// directory.
type Judgment struct {
	ID       string   `yaml:"id" json:"id"`
	Query    string   `yaml:"query" json:"query"`
	Mode     string   `yaml:"mode" json:"mode"`
	Relevant []string `yaml:"relevant" json:"relevant"`
}

// JudgmentSet is the file format read by LoadJudgments:
//
//	k: 5
//	queries:
//	  - id: q1
//	    query: "machine AND learning"
//	    mode: boolean
//	    relevant: [doc1.txt, doc4.txt]
//	  - query: neural networks
//	    relevant: [doc2.txt]
type JudgmentSet struct {
	K       int        `yaml:"k" json:"k"`
	Queries []Judgment `yaml:"queries" json:"queries"`
}

func LoadJudgments(path string) (*JudgmentSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading judgments %s: %w", path, err)
	}
	set, err := ParseJudgments(data)
	if err != nil {
		return nil, fmt.Errorf("judgments %s: %w", path, err)
	}
	return set, nil
}

func ParseJudgments(data []byte) (*JudgmentSet, error) {
	var set JudgmentSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("%w: parsing judgments: %v", apperrors.ErrInvalidInput, err)
	}
	if err := set.Normalize(); err != nil {
		return nil, err
	}
	return &set, nil
}

// Normalize fills defaults (mode vsm, id q<n>, k 10) and rejects entries
// without a query, with an unknown mode or with a duplicate id.
func (s *JudgmentSet) Normalize() error {
	if s.K < 0 {
		return fmt.Errorf("%w: k must not be negative", apperrors.ErrInvalidInput)
	}
	if s.K == 0 {
		s.K = 10
	}
	seen := make(map[string]struct{}, len(s.Queries))
	for i := range s.Queries {
		j := &s.Queries[i]
		if j.Query == "" {
			return fmt.Errorf("%w: judgment %d has no query", apperrors.ErrInvalidInput, i+1)
		}
		if j.ID == "" {
			j.ID = fmt.Sprintf("q%d", i+1)
		}
		switch j.Mode {
		case "":
			j.Mode = ModeVSM
		case ModeBoolean, ModeVSM:
		default:
			return fmt.Errorf("%w: judgment %s has unknown mode %q", apperrors.ErrInvalidInput, j.ID, j.Mode)
		}
		if _, dup := seen[j.ID]; dup {
			return fmt.Errorf("%w: duplicate judgment id %q", apperrors.ErrInvalidInput, j.ID)
		}
		seen[j.ID] = struct{}{}
	}
	return nil
}
