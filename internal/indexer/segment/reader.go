package segment

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

type Reader struct {
	file     *os.File
	filePath string
	header   SegmentHeader
	dict     []DictEntry
	manifest Manifest
}

func OpenReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening segment file: %w", err)
	}
	r, err := readSegment(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

func readSegment(f *os.File, path string) (*Reader, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat segment file: %w", err)
	}
	fileSize := info.Size()
	if fileSize < int64(HeaderSize+FooterSize) {
		return nil, fmt.Errorf("%w: segment is %d bytes, shorter than header and footer", apperrors.ErrCorruptIndex, fileSize)
	}
	headerBytes := make([]byte, HeaderSize)
	if _, err := f.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading segment header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(headerBytes[0:4])
	if magic != MagicBytes {
		return nil, fmt.Errorf("%w: bad magic bytes %x", apperrors.ErrCorruptIndex, magic)
	}
	header := SegmentHeader{
		Magic:          magic,
		Version:        binary.LittleEndian.Uint32(headerBytes[4:8]),
		TermCount:      binary.LittleEndian.Uint32(headerBytes[8:12]),
		DocCount:       binary.LittleEndian.Uint32(headerBytes[12:16]),
		DictOffset:     int64(binary.LittleEndian.Uint64(headerBytes[16:24])),
		DictSize:       int64(binary.LittleEndian.Uint64(headerBytes[24:32])),
		PostOffset:     int64(binary.LittleEndian.Uint64(headerBytes[32:40])),
		PostSize:       int64(binary.LittleEndian.Uint64(headerBytes[40:48])),
		ManifestOffset: int64(binary.LittleEndian.Uint64(headerBytes[48:56])),
		ManifestSize:   int64(binary.LittleEndian.Uint64(headerBytes[56:64])),
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported segment version %d", apperrors.ErrCorruptIndex, header.Version)
	}
	if err := header.validate(fileSize); err != nil {
		return nil, err
	}

	footer := make([]byte, FooterSize)
	if _, err := f.ReadAt(footer, header.ManifestOffset+header.ManifestSize); err != nil {
		return nil, fmt.Errorf("reading footer: %w", err)
	}

	dictBytes := make([]byte, header.DictSize)
	if _, err := f.ReadAt(dictBytes, header.DictOffset); err != nil {
		return nil, fmt.Errorf("reading dictionary: %w", err)
	}
	if crc32.ChecksumIEEE(dictBytes) != binary.LittleEndian.Uint32(footer[0:4]) {
		return nil, fmt.Errorf("%w: dictionary checksum mismatch", apperrors.ErrCorruptIndex)
	}
	var dict []DictEntry
	if err := json.Unmarshal(dictBytes, &dict); err != nil {
		return nil, fmt.Errorf("parsing dictionary: %w", err)
	}
	if len(dict) != int(header.TermCount) {
		return nil, fmt.Errorf("%w: header declares %d terms, dictionary has %d", apperrors.ErrCorruptIndex, header.TermCount, len(dict))
	}

	manifestBytes := make([]byte, header.ManifestSize)
	if _, err := f.ReadAt(manifestBytes, header.ManifestOffset); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	if crc32.ChecksumIEEE(manifestBytes) != binary.LittleEndian.Uint32(footer[4:8]) {
		return nil, fmt.Errorf("%w: manifest checksum mismatch", apperrors.ErrCorruptIndex)
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestBytes, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	return &Reader{
		file:     f,
		filePath: path,
		header:   header,
		dict:     dict,
		manifest: manifest,
	}, nil
}

// validate checks every region the header declares against the file size
// before anything is allocated from those sizes.
func (h SegmentHeader) validate(fileSize int64) error {
	regions := []struct {
		name         string
		offset, size int64
	}{
		{"postings", h.PostOffset, h.PostSize},
		{"dictionary", h.DictOffset, h.DictSize},
		{"manifest", h.ManifestOffset, h.ManifestSize},
	}
	limit := fileSize - int64(FooterSize)
	for _, r := range regions {
		if !withinRange(r.offset, r.size, int64(HeaderSize), limit) {
			return fmt.Errorf("%w: %s region [%d,+%d) outside file of %d bytes",
				apperrors.ErrCorruptIndex, r.name, r.offset, r.size, fileSize)
		}
	}
	if h.ManifestOffset+h.ManifestSize != limit {
		return fmt.Errorf("%w: footer not at end of file", apperrors.ErrCorruptIndex)
	}
	return nil
}

// withinRange reports whether [offset, offset+size) lies inside [lo, hi]
// without overflowing.
func withinRange(offset, size, lo, hi int64) bool {
	return offset >= lo && size >= 0 && offset <= hi && size <= hi-offset
}

// Search returns the postings of a single term without loading the rest of
// the segment.
func (r *Reader) Search(term string) (index.PostingList, error) {
	idx := sort.Search(len(r.dict), func(i int) bool {
		return r.dict[i].Term >= term
	})
	if idx >= len(r.dict) || r.dict[idx].Term != term {
		return nil, nil
	}
	return r.readPostings(r.dict[idx])
}

func (r *Reader) readPostings(entry DictEntry) (index.PostingList, error) {
	if !withinRange(entry.PostOffset, int64(entry.PostLen), 0, r.header.PostSize) {
		return nil, fmt.Errorf("%w: term %q postings [%d,+%d) outside postings region of %d bytes",
			apperrors.ErrCorruptIndex, entry.Term, entry.PostOffset, entry.PostLen, r.header.PostSize)
	}
	postingsBytes := make([]byte, entry.PostLen)
	if _, err := r.file.ReadAt(postingsBytes, r.header.PostOffset+entry.PostOffset); err != nil {
		return nil, fmt.Errorf("reading postings: %w", err)
	}
	var postings index.PostingList
	if err := json.Unmarshal(postingsBytes, &postings); err != nil {
		return nil, fmt.Errorf("parsing postings: %w", err)
	}
	if len(postings) != entry.DocFreq {
		return nil, fmt.Errorf("%w: term %q declares df %d, has %d postings", apperrors.ErrCorruptIndex, entry.Term, entry.DocFreq, len(postings))
	}
	return postings, nil
}

// Load reconstructs the full index. The analyzer must match the one the
// segment was written with, otherwise queries would be normalised
// differently from the indexed terms.
func (r *Reader) Load(analyzer *tokenizer.Analyzer) (*index.Index, error) {
	if analyzer.Fingerprint() != r.manifest.Analyzer {
		return nil, fmt.Errorf("%w: segment %s was built with a different analyzer configuration",
			apperrors.ErrInvalidInput, filepath.Base(r.filePath))
	}
	entries := make([]index.TermEntry, 0, len(r.dict))
	for _, d := range r.dict {
		postings, err := r.readPostings(d)
		if err != nil {
			return nil, err
		}
		entries = append(entries, index.TermEntry{Term: d.Term, Postings: postings})
	}
	return index.FromEntries(analyzer, r.manifest.Docs, entries)
}

func (r *Reader) Terms() int {
	return len(r.dict)
}

func (r *Reader) DocCount() uint32 {
	return r.header.DocCount
}

func (r *Reader) Path() string {
	return r.filePath
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// Latest returns the path of the newest segment in dataDir, or "" if there
// is none. Segment names embed their creation time, so lexical order is
// creation order.
func Latest(dataDir string) (string, error) {
	entries, err := os.ReadDir(dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading data directory: %w", err)
	}
	segFiles := make([]string, 0)
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), Extension) {
			segFiles = append(segFiles, entry.Name())
		}
	}
	if len(segFiles) == 0 {
		return "", nil
	}
	sort.Strings(segFiles)
	return filepath.Join(dataDir, segFiles[len(segFiles)-1]), nil
}
