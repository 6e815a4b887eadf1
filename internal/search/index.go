// Package search provides a simple, deterministic, concurrency-safe in-memory
// search index over blog articles. It is intentionally small and
// dependency-free, but engineered with production-grade ergonomics:
//
//   - No logging in the library (callers decide how/what to log)
//   - Clear, documented types and functional options (Option pattern)
//   - Unicode-aware tokenization with optional stop-word removal
//   - Immutable, read-only index after construction (safe for concurrent use)
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// article's token set: score = |Q ∩ A| / |Q ∪ A|. Title tokens are part of
// the article token set, so title matches rank naturally without a separate
// boost heuristic.
package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Document is an article to index: Ref is an opaque caller identifier
// (typically the post slug), Title and Body the searchable text. Body is
// expected to be plain text; use StripMarkdown for Markdown sources.
type Document struct {
	Ref   string
	Title string
	Body  string
}

// Result is a ranked article reference with its similarity score.
type Result struct {
	Ref   string
	Title string
	Score float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minBodyRunes int
	stopwords    map[string]struct{}
	maxDocs      int
}

func defaultConfig() config {
	return config{
		minBodyRunes: 0,
		stopwords:    nil,
		maxDocs:      0,
	}
}

// WithMinBodyRunes skips articles whose body is shorter than n runes.
func WithMinBodyRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minBodyRunes = n
		}
	}
}

// WithStopwords removes the given words from both query and article tokens.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxDocs caps how many articles are indexed (0 = unlimited).
func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	ref      string
	title    string
	tokens   map[string]struct{}
	tLen     int
	lenRunes int
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndexFromDocuments builds an immutable Index from the given articles.
// Articles with an empty token set are skipped. The returned index is safe
// for concurrent readers.
func NewIndexFromDocuments(documents []Document, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}

	docs := make([]doc, 0, len(documents))
	for _, d := range documents {
		body := strings.TrimSpace(normalizeWhitespace(d.Body))
		if cfg.minBodyRunes > 0 && utf8.RuneCountInString(body) < cfg.minBodyRunes {
			continue
		}
		toks := tokenize(d.Title+" "+body, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{
			ref:      d.Ref,
			title:    d.Title,
			tokens:   toks,
			tLen:     len(toks),
			lenRunes: utf8.RuneCountInString(body),
		})
		if cfg.maxDocs > 0 && len(docs) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: docs}
}

// TopK returns up to k best-matching articles by Jaccard similarity.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 {
		return nil
	}
	if strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := tokenize(q, i.cfg.stopwords)
	if len(qTokens) == 0 {
		return nil
	}
	qLen := len(qTokens)

	buf := make([]doc, 0, len(i.docs))
	scores := make(map[string]float64, len(i.docs))
	for _, d := range i.docs {
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(qLen + d.tLen - over)
		if union <= 0 {
			continue
		}
		score := float64(over) / union
		if score <= 0 {
			continue
		}
		buf = append(buf, d)
		scores[d.ref] = score
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		sa, sb := scores[buf[a].ref], scores[buf[b].ref]
		if sa != sb {
			return sa > sb
		}
		if buf[a].lenRunes != buf[b].lenRunes {
			return buf[a].lenRunes < buf[b].lenRunes
		}
		return buf[a].ref < buf[b].ref
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{Ref: buf[n].ref, Title: buf[n].title, Score: scores[buf[n].ref]}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*`)

func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	s = strings.ToLower(s)
	words := wordRE.FindAllString(s, -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if stop != nil {
			if _, skip := stop[w]; skip {
				continue
			}
		}
		out[w] = struct{}{}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	n := 0
	if len(a) > len(b) {
		a, b = b, a
	}
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
