package segment

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/corpus"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/minisearch/pkg/errors"
)

func buildSample(t *testing.T) *index.Index {
	t.Helper()
	idx, err := index.Build(corpus.FromTexts("cat dog cat", "dog bird", "fish"), tokenizer.Default())
	require.NoError(t, err)
	return idx
}

func writeSample(t *testing.T) (string, *index.Index) {
	t.Helper()
	dir := t.TempDir()
	idx := buildSample(t)
	name, err := NewWriter(dir).Write(idx)
	require.NoError(t, err)
	return filepath.Join(dir, name), idx
}

func TestWriteAndLoadRoundTrip(t *testing.T) {
	path, idx := writeSample(t)

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, idx.NumTerms(), r.Terms())
	assert.Equal(t, uint32(idx.NumDocs()), r.DocCount())

	loaded, err := r.Load(tokenizer.Default())
	require.NoError(t, err)
	assert.True(t, idx.Equal(loaded))
	assert.Equal(t, idx.Docs(), loaded.Docs())
}

func TestReaderSearchSingleTerm(t *testing.T) {
	path, _ := writeSample(t)
	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	postings, err := r.Search("dog")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, postings.DocIDs())

	postings, err = r.Search("unicorn")
	require.NoError(t, err)
	assert.Empty(t, postings)
}

func TestLoadRejectsDifferentAnalyzer(t *testing.T) {
	path, _ := writeSample(t)
	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	cfg := config.Default().Analyzer
	cfg.Stem = false
	_, err = r.Load(tokenizer.New(cfg))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestOpenReaderDetectsCorruption(t *testing.T) {
	path, _ := writeSample(t)
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] ^= 0xFF
		p := filepath.Join(t.TempDir(), "bad.spdx")
		require.NoError(t, os.WriteFile(p, bad, 0644))
		_, err := OpenReader(p)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrCorruptIndex))
	})

	t.Run("flipped manifest byte", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[len(bad)-FooterSize-2] ^= 0x01
		p := filepath.Join(t.TempDir(), "bad.spdx")
		require.NoError(t, os.WriteFile(p, bad, 0644))
		_, err := OpenReader(p)
		require.Error(t, err)
		assert.True(t, errors.Is(err, apperrors.ErrCorruptIndex))
	})

	t.Run("oversized header region", func(t *testing.T) {
		for _, field := range []int{24, 40, 56} {
			bad := append([]byte(nil), data...)
			binary.LittleEndian.PutUint64(bad[field:field+8], ^uint64(0))
			p := filepath.Join(t.TempDir(), "bad.spdx")
			require.NoError(t, os.WriteFile(p, bad, 0644))
			require.NotPanics(t, func() { _, err = OpenReader(p) })
			assert.ErrorIs(t, err, apperrors.ErrCorruptIndex, "field at %d", field)
		}
	})

	t.Run("header only", func(t *testing.T) {
		bad := make([]byte, HeaderSize+FooterSize)
		copy(bad, data[:8])
		binary.LittleEndian.PutUint64(bad[24:32], ^uint64(0))
		p := filepath.Join(t.TempDir(), "bad.spdx")
		require.NoError(t, os.WriteFile(p, bad, 0644))
		require.NotPanics(t, func() { _, err = OpenReader(p) })
		assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)
	})

	t.Run("truncated", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "bad.spdx")
		require.NoError(t, os.WriteFile(p, data[:len(data)/2], 0644))
		_, err := OpenReader(p)
		assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)

		require.NoError(t, os.WriteFile(p, data[:10], 0644))
		_, err = OpenReader(p)
		assert.ErrorIs(t, err, apperrors.ErrCorruptIndex)
	})
}

func TestReadPostingsRejectsOutOfRangeEntry(t *testing.T) {
	path, _ := writeSample(t)
	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()

	for _, entry := range []DictEntry{
		{Term: "cat", PostOffset: -1, PostLen: 4, DocFreq: 1},
		{Term: "cat", PostOffset: 0, PostLen: -5, DocFreq: 1},
		{Term: "cat", PostOffset: r.header.PostSize, PostLen: 1, DocFreq: 1},
		{Term: "cat", PostOffset: 1 << 62, PostLen: 1 << 30, DocFreq: 1},
	} {
		_, err := r.readPostings(entry)
		assert.ErrorIs(t, err, apperrors.ErrCorruptIndex, "%+v", entry)
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	path, err := Latest(dir)
	require.NoError(t, err)
	assert.Empty(t, path)

	path, err = Latest(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, path)

	w := NewWriter(dir)
	first, err := w.Write(buildSample(t))
	require.NoError(t, err)
	second, err := w.Write(buildSample(t))
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	path, err = Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, second), path)
}
