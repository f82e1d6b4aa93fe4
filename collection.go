package surf

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// ═══════════════════════════════════════════════════════════════════════════════
// COLLECTION: Documents as One Token Text
// ═══════════════════════════════════════════════════════════════════════════════
// The index is built over a single concatenated token text:
//
//	doc0 tokens, SEP, doc1 tokens, SEP, ..., docN tokens, SEP, TERM
//
// Token ids:
//
//	0 → TERM  terminates the text (unique and smallest, so every suffix differs)
//	1 → SEP   closes a document (the document boundary map marks these)
//	2+ → terms, in first-seen order
//
// Patterns never contain 0 or 1, so a match never spans two documents.
// ═══════════════════════════════════════════════════════════════════════════════

const (
	TokenTerminator uint32 = 0
	TokenSeparator  uint32 = 1

	firstTermID uint32 = 2
)

// Vocabulary maps terms to token ids and back
type Vocabulary struct {
	ids   map[string]uint32
	terms []string // terms[id-firstTermID]
}

// NewVocabulary creates an empty vocabulary
func NewVocabulary() *Vocabulary {
	return &Vocabulary{ids: make(map[string]uint32)}
}

// Add returns the id of term, assigning the next free id on first sight
func (v *Vocabulary) Add(term string) uint32 {
	if id, ok := v.ids[term]; ok {
		return id
	}
	id := firstTermID + uint32(len(v.terms))
	v.ids[term] = id
	v.terms = append(v.terms, term)
	return id
}

// ID looks a term up without adding it
func (v *Vocabulary) ID(term string) (uint32, bool) {
	id, ok := v.ids[term]
	return id, ok
}

// Term returns the term behind a token id. Reserved and unknown ids map to "".
func (v *Vocabulary) Term(id uint32) string {
	if id < firstTermID || int(id-firstTermID) >= len(v.terms) {
		return ""
	}
	return v.terms[id-firstTermID]
}

// Size is the number of distinct terms
func (v *Vocabulary) Size() int {
	return len(v.terms)
}

// Document is one entry of a collection
type Document struct {
	Name   string
	Tokens []uint32
}

// Collection is an ordered set of tokenized documents sharing one vocabulary
type Collection struct {
	Vocabulary *Vocabulary
	Documents  []Document
	Analyzer   AnalyzerConfig
}

// NewCollection creates an empty collection analyzed with config
func NewCollection(config AnalyzerConfig) *Collection {
	return &Collection{
		Vocabulary: NewVocabulary(),
		Analyzer:   config,
	}
}

// AddText analyzes text and appends it as a new document. Returns the doc id.
func (c *Collection) AddText(name, text string) uint32 {
	terms := AnalyzeWithConfig(text, c.Analyzer)
	tokens := make([]uint32, len(terms))
	for i, term := range terms {
		tokens[i] = c.Vocabulary.Add(term)
	}
	return c.AddTokens(name, tokens)
}

// AddTerms appends an already tokenized document, one term per element
func (c *Collection) AddTerms(name string, terms []string) uint32 {
	tokens := make([]uint32, len(terms))
	for i, term := range terms {
		tokens[i] = c.Vocabulary.Add(term)
	}
	return c.AddTokens(name, tokens)
}

// AddTokens appends a document given as raw token ids. Ids below 2 are
// reserved and must not appear.
func (c *Collection) AddTokens(name string, tokens []uint32) uint32 {
	id := uint32(len(c.Documents))
	c.Documents = append(c.Documents, Document{Name: name, Tokens: tokens})
	return id
}

// Text returns the concatenated token text: documents joined and closed by
// separators, followed by the terminator.
func (c *Collection) Text() []uint32 {
	total := 1
	for _, doc := range c.Documents {
		total += len(doc.Tokens) + 1
	}
	text := make([]uint32, 0, total)
	for _, doc := range c.Documents {
		text = append(text, doc.Tokens...)
		text = append(text, TokenSeparator)
	}
	return append(text, TokenTerminator)
}

// validate rejects token streams that would corrupt the document layout
func (c *Collection) validate() error {
	if len(c.Documents) == 0 {
		return ErrEmptyCollection
	}
	for d, doc := range c.Documents {
		for i, tok := range doc.Tokens {
			if tok < firstTermID {
				return fmt.Errorf("document %d token %d: reserved id %d", d, i, tok)
			}
		}
	}
	return nil
}

// CollectionFromDir reads every non-empty regular file in dir as one document,
// in file name order. Files whose analysis yields no tokens are skipped.
func CollectionFromDir(dir string, config AnalyzerConfig) (*Collection, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading collection directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	c := NewCollection(config)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading document %s: %w", name, err)
		}
		terms := AnalyzeWithConfig(string(data), config)
		if len(terms) == 0 {
			slog.Warn("skipping empty document", slog.String("file", name))
			continue
		}
		c.AddTerms(name, terms)
	}

	if len(c.Documents) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrEmptyCollection)
	}
	slog.Info("collection loaded",
		slog.String("dir", dir),
		slog.Int("documents", len(c.Documents)),
		slog.Int("terms", c.Vocabulary.Size()))
	return c, nil
}
