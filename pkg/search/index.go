package search

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/noah-vl/orbit-frontend-sub000/pkg/graph"
)

// Index is an in-process keyword search over a graph payload. Similarity
// is the fraction of query terms found in a title. It stands in for the
// semantic service in offline use.
type Index struct {
	mu         sync.RWMutex
	articles   []indexEntry
	categories []indexEntry
}

type indexEntry struct {
	key   string
	title string
	terms map[string]struct{}
}

// NewIndex indexes p.
func NewIndex(p graph.Payload) *Index {
	idx := &Index{}
	idx.Reset(p)
	return idx
}

// Reset replaces the indexed payload.
func (x *Index) Reset(p graph.Payload) {
	var articles, categories []indexEntry
	for _, n := range p.Nodes {
		tier, ok := graph.ParseTier(n.Group)
		if !ok || n.ID == "" {
			continue
		}
		title := n.DisplayTitle()
		switch tier {
		case graph.Leaf:
			key := n.ArticleID
			if key == "" {
				key = n.ID
			}
			articles = append(articles, indexEntry{key: key, title: title, terms: terms(title)})
		case graph.Category:
			categories = append(categories, indexEntry{key: title, title: title, terms: terms(title)})
		}
	}
	x.mu.Lock()
	x.articles, x.categories = articles, categories
	x.mu.Unlock()
}

// Search implements Service.
func (x *Index) Search(ctx context.Context, q Query) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	q = q.Normalized()
	want := terms(q.Text)
	if len(want) == 0 {
		return Result{}, nil
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	var res Result
	for _, e := range x.articles {
		if s := score(want, e.terms); s > 0 {
			res.Articles = append(res.Articles, Article{ID: e.key, Title: e.title, Similarity: s})
		}
	}
	for _, e := range x.categories {
		if s := score(want, e.terms); s > 0 {
			res.Categories = append(res.Categories, Category{Name: e.title, Similarity: s})
		}
	}
	sort.SliceStable(res.Articles, func(i, j int) bool { return res.Articles[i].Similarity > res.Articles[j].Similarity })
	sort.SliceStable(res.Categories, func(i, j int) bool { return res.Categories[i].Similarity > res.Categories[j].Similarity })
	if len(res.Articles) > q.Limit {
		res.Articles = res.Articles[:q.Limit]
	}
	if len(res.Categories) > q.Limit {
		res.Categories = res.Categories[:q.Limit]
	}
	return res, nil
}

func score(want, have map[string]struct{}) float64 {
	hit := 0
	for t := range want {
		if _, ok := have[t]; ok {
			hit++
		}
	}
	return float64(hit) / float64(len(want))
}

func terms(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[f] = struct{}{}
	}
	return out
}
