package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// DirSource loads every file with the configured extension below Dir. Files
// are ordered by relative path and numbered from 1, so the same directory
// always yields the same ids.
type DirSource struct {
	Dir         string
	Ext         string
	Concurrency int
}

func (s DirSource) Load(ctx context.Context) ([]Document, error) {
	logger := slog.Default().With("component", "corpus-dir", "dir", s.Dir)
	var paths []string
	err := filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if s.Ext != "" && !strings.HasSuffix(path, s.Ext) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking corpus directory %s: %w", s.Dir, err)
	}
	sort.Strings(paths)

	docs := make([]Document, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	limit := s.Concurrency
	if limit <= 0 {
		limit = 8
	}
	g.SetLimit(limit)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			if !utf8.Valid(content) {
				return fmt.Errorf("reading %s: content is not valid UTF-8", path)
			}
			name, err := filepath.Rel(s.Dir, path)
			if err != nil {
				name = path
			}
			docs[i] = Document{
				ID:   i + 1,
				Name: filepath.ToSlash(name),
				Text: string(content),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Info("corpus loaded", "documents", len(docs))
	return docs, nil
}
