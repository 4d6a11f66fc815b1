package index

// Posting records how often a term occurs in one document.
type Posting struct {
	DocID     int `json:"d"`
	Frequency int `json:"f"`
}

// PostingList holds the postings of one term ordered by DocID ascending.
type PostingList []Posting

// DocIDs returns the document ids of the list, in list order.
func (pl PostingList) DocIDs() []int {
	ids := make([]int, len(pl))
	for i, p := range pl {
		ids[i] = p.DocID
	}
	return ids
}

func (pl PostingList) sorted() bool {
	for i := 1; i < len(pl); i++ {
		if pl[i-1].DocID >= pl[i].DocID {
			return false
		}
	}
	return true
}

// TermEntry pairs a term with its posting list. It is the unit of
// serialisation.
type TermEntry struct {
	Term     string      `json:"term"`
	Postings PostingList `json:"postings"`
}

// DocInfo is what the index keeps about a document once it is built.
type DocInfo struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Length int    `json:"len"`
}

// Stats summarises an index.
type Stats struct {
	Documents    int     `json:"total_documents"`
	Terms        int     `json:"vocabulary_size"`
	Postings     int     `json:"total_postings"`
	Tokens       int     `json:"total_tokens"`
	AvgDocLength float64 `json:"avg_doc_length"`
}
