package index

// Vocabulary assigns dense integer ids to terms in first-seen order. Ids are
// internal to one index and never exposed to callers.
type Vocabulary struct {
	ids   map[string]int
	terms []string
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{ids: make(map[string]int)}
}

// Add returns the id for term, assigning the next free id if term is new.
func (v *Vocabulary) Add(term string) int {
	if id, ok := v.ids[term]; ok {
		return id
	}
	id := len(v.terms)
	v.ids[term] = id
	v.terms = append(v.terms, term)
	return id
}

// ID looks up the id of term.
func (v *Vocabulary) ID(term string) (int, bool) {
	id, ok := v.ids[term]
	return id, ok
}

// Term returns the term with the given id.
func (v *Vocabulary) Term(id int) string {
	return v.terms[id]
}

func (v *Vocabulary) Len() int {
	return len(v.terms)
}
