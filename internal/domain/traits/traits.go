// Package traits extracts rating adjustments from free text by keyword matching.
//
// Matching is deterministic: text and names are normalized, athlete mentions are
// located, and every keyword occurrence is attributed to the athletes mentioned in
// or just around its sentence.
package traits

import (
	"sort"
	"strings"

	"github.com/okian/velorank/internal/domain/textnorm"
)

// Sentiment is the polarity of a pattern.
type Sentiment string

// Sentiments.
const (
	Positive Sentiment = "positive"
	Negative Sentiment = "negative"
	Neutral  Sentiment = "neutral"
)

const (
	defaultWindow    = 50
	minLastNameRunes = 4
	maxSources       = 5
	snippetLength    = 100
)

// Pattern ties keywords to a dimension. Weight is a magnitude; Sentiment gives the sign.
type Pattern struct {
	Dimension string
	Keywords  []string
	Weight    float64
	Sentiment Sentiment
}

// Signed returns +|Weight| for positive, -|Weight| for negative and 0 for neutral patterns.
func (p Pattern) Signed() float64 {
	w := p.Weight
	if w < 0 {
		w = -w
	}
	switch p.Sentiment {
	case Positive:
		return w
	case Negative:
		return -w
	}
	return 0
}

type keyword struct {
	raw  string
	norm string
}

// Catalog is an immutable ordered pattern list with keywords pre-normalized.
type Catalog struct {
	patterns []Pattern
	keywords [][]keyword
}

// NewCatalog normalizes the keywords of patterns once.
func NewCatalog(patterns []Pattern) *Catalog {
	c := &Catalog{
		patterns: make([]Pattern, len(patterns)),
		keywords: make([][]keyword, len(patterns)),
	}
	copy(c.patterns, patterns)
	for i, p := range patterns {
		for _, kw := range p.Keywords {
			if n := textnorm.Normalize(kw); n != "" {
				c.keywords[i] = append(c.keywords[i], keyword{raw: kw, norm: n})
			}
		}
	}
	return c
}

var defaultCatalog = NewCatalog(DefaultPatterns())

// DefaultCatalog returns the standard cycling pattern catalog.
func DefaultCatalog() *Catalog { return defaultCatalog }

// Len returns the number of patterns.
func (c *Catalog) Len() int { return len(c.patterns) }

// Dimensions returns the distinct dimensions the catalog can adjust, sorted.
func (c *Catalog) Dimensions() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range c.patterns {
		if _, ok := seen[p.Dimension]; !ok {
			seen[p.Dimension] = struct{}{}
			out = append(out, p.Dimension)
		}
	}
	sort.Strings(out)
	return out
}

// Athlete is a known name to look for.
type Athlete struct {
	ID   string
	Name string
}

// Mention is one occurrence of an athlete in normalized text. Start and End are byte offsets.
type Mention struct {
	AthleteID string
	Name      string
	Start     int
	End       int
}

type rosterEntry struct {
	athlete  Athlete
	full     string
	lastName string
}

// Roster holds normalized athlete names for repeated mention searches.
type Roster struct {
	entries []rosterEntry
}

// NewRoster normalizes athlete names. Athletes whose name normalizes to nothing are skipped.
func NewRoster(athletes []Athlete) *Roster {
	r := &Roster{entries: make([]rosterEntry, 0, len(athletes))}
	for _, a := range athletes {
		full := textnorm.Normalize(a.Name)
		if full == "" {
			continue
		}
		e := rosterEntry{athlete: a, full: full}
		if parts := strings.Fields(full); len(parts) >= 2 {
			last := parts[len(parts)-1]
			if len([]rune(last)) >= minLastNameRunes {
				e.lastName = last
			}
		}
		r.entries = append(r.entries, e)
	}
	return r
}

// Len returns the number of searchable athletes.
func (r *Roster) Len() int { return len(r.entries) }

// FindMentions returns every full-name and last-name occurrence in normalized text,
// ordered by position. A last name inside a full-name match of the same athlete is not
// reported twice.
func (r *Roster) FindMentions(text string) []Mention {
	var out []Mention
	for _, e := range r.entries {
		var full []Mention
		for _, i := range textnorm.FindAll(text, e.full) {
			full = append(full, Mention{AthleteID: e.athlete.ID, Name: e.athlete.Name, Start: i, End: i + len(e.full)})
		}
		out = append(out, full...)
		if e.lastName == "" {
			continue
		}
		for _, i := range textnorm.FindAll(text, e.lastName) {
			if within(full, i) {
				continue
			}
			out = append(out, Mention{AthleteID: e.athlete.ID, Name: e.athlete.Name, Start: i, End: i + len(e.lastName)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].AthleteID < out[j].AthleteID
	})
	return out
}

func within(spans []Mention, at int) bool {
	for _, m := range spans {
		if at >= m.Start && at < m.End {
			return true
		}
	}
	return false
}

// Extraction is one keyword hit attributed to one athlete.
type Extraction struct {
	AthleteID   string    `json:"athlete_id"`
	AthleteName string    `json:"athlete_name"`
	Dimension   string    `json:"dimension"`
	Weight      float64   `json:"weight"`
	Sentiment   Sentiment `json:"sentiment"`
	Keyword     string    `json:"keyword"`
	Context     string    `json:"context"`
}

// TextResult is what one text yielded.
type TextResult struct {
	Mentions    []Mention
	Extractions []Extraction
}

// Extractor finds pattern hits near athlete mentions.
type Extractor struct {
	catalog *Catalog
	window  int
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithCatalog replaces the pattern catalog.
func WithCatalog(c *Catalog) Option {
	return func(e *Extractor) {
		if c != nil {
			e.catalog = c
		}
	}
}

// WithWindow sets the slack, in normalized characters, around a sentence within which
// mentions are attributed.
func WithWindow(n int) Option {
	return func(e *Extractor) {
		if n >= 0 {
			e.window = n
		}
	}
}

// NewExtractor returns an Extractor using the default catalog unless overridden.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{catalog: DefaultCatalog(), window: defaultWindow}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract scans text for athletes in roster and attributes pattern hits to them.
// A keyword occurrence yields at most one extraction per athlete. Hits with no
// nearby athlete are dropped.
func (e *Extractor) Extract(text string, roster *Roster) TextResult {
	norm := textnorm.Normalize(text)
	mentions := roster.FindMentions(norm)
	res := TextResult{Mentions: mentions}
	if len(mentions) == 0 {
		return res
	}

	for pi, p := range e.catalog.patterns {
		signed := p.Signed()
		for _, kw := range e.catalog.keywords[pi] {
			for _, at := range textnorm.FindAll(norm, kw.norm) {
				start, end := textnorm.Sentence(norm, at)
				context := strings.TrimSpace(norm[start:end])
				attributed := make(map[string]struct{})
				for _, m := range mentions {
					if m.Start < start-e.window || m.End > end+e.window {
						continue
					}
					if _, done := attributed[m.AthleteID]; done {
						continue
					}
					attributed[m.AthleteID] = struct{}{}
					res.Extractions = append(res.Extractions, Extraction{
						AthleteID:   m.AthleteID,
						AthleteName: m.Name,
						Dimension:   p.Dimension,
						Weight:      signed,
						Sentiment:   p.Sentiment,
						Keyword:     kw.raw,
						Context:     context,
					})
				}
			}
		}
	}
	return res
}
