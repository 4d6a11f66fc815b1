package benchmark

import (
	"context"
	"fmt"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/boolean"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/minisearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/minisearch/pkg/config"
)

func BenchmarkNormalize(b *testing.B) {
	analyzer := tokenizer.Default()
	text := syntheticCorpus(1, 500)[0].Text
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		analyzer.Normalize(text)
	}
}

func BenchmarkNormalizeParallel(b *testing.B) {
	analyzer := tokenizer.Default()
	text := syntheticCorpus(1, 500)[0].Text
	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			analyzer.Normalize(text)
		}
	})
}

func BenchmarkIndexBuild(b *testing.B) {
	for _, n := range []int{100, 1000, 5000} {
		docs := syntheticCorpus(n, 200)
		b.Run(fmt.Sprintf("docs_%d", n), func(b *testing.B) {
			analyzer := tokenizer.Default()
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := index.Build(docs, analyzer); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkParse(b *testing.B) {
	queries := map[string]string{
		"single": "retrieval",
		"and":    "retrieval AND index AND posting",
		"mixed":  "(retrieval OR ranking) AND NOT stopword",
		"nested": "((a AND b) OR (c AND NOT d)) AND (e OR f)",
	}
	for name, q := range queries {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := parser.Parse(q); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkBooleanEvaluate(b *testing.B) {
	idx, err := index.Build(syntheticCorpus(5000, 100), tokenizer.Default())
	if err != nil {
		b.Fatal(err)
	}
	for _, q := range []string{
		"retrieval AND index",
		"retrieval OR judgment",
		"query AND NOT average",
		"(cosine OR vector) AND (precision OR recall) AND NOT stopword",
	} {
		b.Run(q, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := boolean.Evaluate(q, idx); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRank(b *testing.B) {
	idx, err := index.Build(syntheticCorpus(5000, 100), tokenizer.Default())
	if err != nil {
		b.Fatal(err)
	}
	for _, scheme := range ranker.Schemes {
		model := ranker.NewModel(idx, scheme)
		for _, limit := range []int{10, 0} {
			b.Run(fmt.Sprintf("%s/limit_%d", scheme, limit), func(b *testing.B) {
				b.ReportAllocs()
				for i := 0; i < b.N; i++ {
					model.Rank("cosine similarity of document vectors", ranker.RankOptions{Limit: limit})
				}
			})
		}
	}
}

func BenchmarkSearcherVSMParallel(b *testing.B) {
	docs := syntheticCorpus(2000, 100)
	idx, err := index.Build(docs, tokenizer.Default())
	if err != nil {
		b.Fatal(err)
	}
	s := executor.New(config.SearchConfig{DefaultLimit: 10, MaxResults: 100, Scheme: "sublinear"}, nil)
	s.Swap(idx, docs)
	ctx := context.Background()
	queries := []string{"retrieval index", "cosine vector", "precision recall evaluation", "stemming token"}

	b.ReportAllocs()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := s.VSM(ctx, queries[i%len(queries)], executor.VSMOptions{}); err != nil {
				b.Error(err)
				return
			}
			i++
		}
	})
}

func BenchmarkSearcherBooleanDuringReload(b *testing.B) {
	docs := syntheticCorpus(2000, 100)
	idx, err := index.Build(docs, tokenizer.Default())
	if err != nil {
		b.Fatal(err)
	}
	s := executor.New(config.SearchConfig{DefaultLimit: 10, MaxResults: 100, Scheme: "sublinear"}, nil)
	s.Swap(idx, docs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		for ctx.Err() == nil {
			s.Swap(idx, docs)
		}
	}()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Boolean(ctx, "retrieval AND NOT stopword", false); err != nil {
			b.Fatal(err)
		}
	}
}
