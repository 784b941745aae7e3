// Package indexer splits extracted documents into passages, embeds them and
// writes them to storage and the vector index.
package indexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hyperjump/kotae/internal/models"
)

// defaultSeparators are tried in order; text is split on the first one present.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Chunker splits text into overlapping passages of at most chunkSize characters,
// preferring paragraph, then line, then word boundaries.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// Chunk splits text into DocumentChunks. IDs are derived from docID and the
// chunk position, so re-chunking the same document reuses them.
func (c *Chunker) Chunk(docID, text string) []*models.DocumentChunk {
	parts := c.Split(text)
	if len(parts) == 0 {
		return nil
	}
	chunks := make([]*models.DocumentChunk, len(parts))
	for i, p := range parts {
		chunks[i] = &models.DocumentChunk{
			ID:         fmt.Sprintf("%s_%d", docID, i),
			DocumentID: docID,
			Content:    p,
			ChunkIndex: i,
		}
	}
	return chunks
}

// Split returns the passages of text.
func (c *Chunker) Split(text string) []string {
	return c.split(text, defaultSeparators)
}

func (c *Chunker) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var next []string
	for i, s := range separators {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep = s
			next = separators[i+1:]
			break
		}
	}

	var splits []string
	if sep == "" {
		splits = strings.Split(text, "")
	} else {
		splits = strings.Split(text, sep)
	}

	var out, pending []string
	for _, s := range splits {
		if s == "" {
			continue
		}
		if utf8.RuneCountInString(s) < c.chunkSize {
			pending = append(pending, s)
			continue
		}
		if len(pending) > 0 {
			out = append(out, c.merge(pending, sep)...)
			pending = nil
		}
		if len(next) == 0 {
			out = append(out, strings.TrimSpace(s))
		} else {
			out = append(out, c.split(s, next)...)
		}
	}
	if len(pending) > 0 {
		out = append(out, c.merge(pending, sep)...)
	}
	return out
}

// merge joins small splits into passages, carrying up to chunkOverlap
// characters of trailing splits into the next passage.
func (c *Chunker) merge(splits []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)
	var docs, current []string
	total := 0
	joinLen := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}
	for _, s := range splits {
		n := utf8.RuneCountInString(s)
		if total+n+joinLen() > c.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
				docs = append(docs, doc)
			}
			for total > c.chunkOverlap || (total+n+joinLen() > c.chunkSize && total > 0) {
				drop := utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}
		current = append(current, s)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}
	if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}
