package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/vector"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	metaKeySourcePath  = "source_path"
	metaKeySourceMtime = "source_mtime"
	metaKeySourceSize  = "source_size"
	metaKeyChunks      = "chunks"

	defaultEmbedBatchSize   = 64
	defaultEmbedConcurrency = 4
)

// ErrNoDocuments is returned when a directory holds no ingestible files.
var ErrNoDocuments = errors.New("no ingestible documents found")

// FileResult describes one ingested file.
type FileResult struct {
	DocumentID string `json:"document_id"`
	Path       string `json:"path"`
	Chunks     int    `json:"chunks"`
	Skipped    bool   `json:"skipped"`
}

// DirectoryResult summarizes a directory ingest.
type DirectoryResult struct {
	Indexed int      `json:"indexed"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Chunks  int      `json:"chunks"`
	Errors  []string `json:"errors,omitempty"`
}

// Indexer writes documents to storage and the vector index.
type Indexer struct {
	storage     storage.Storage
	embedder    embedding.Embedder
	vectorIndex vector.VectorIndex
	chunker     *Chunker
	extractor   *extract.Extractor
	indexPath   string
	name        string
	backend     string
	batchSize   int
	concurrency int
	logger      *zap.Logger

	// mu serializes writes so a document's old vectors are never removed
	// while a concurrent ingest of the same file is adding new ones.
	mu sync.Mutex
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithIndexPath persists the vector index to path after every write when the
// index supports it.
func WithIndexPath(path string) IndexerOption {
	return func(idx *Indexer) { idx.indexPath = path }
}

// WithCollection names the collection reported by Info.
func WithCollection(name, backend string) IndexerOption {
	return func(idx *Indexer) {
		idx.name = name
		idx.backend = backend
	}
}

// WithEmbedBatching sets how many passages go into one embedding request and
// how many requests run at once.
func WithEmbedBatching(size, concurrency int) IndexerOption {
	return func(idx *Indexer) {
		if size > 0 {
			idx.batchSize = size
		}
		if concurrency > 0 {
			idx.concurrency = concurrency
		}
	}
}

// NewIndexer creates an indexer with the given dependencies.
// extractor may be nil; DefaultExtensions are used then.
func NewIndexer(
	store storage.Storage,
	embedder embedding.Embedder,
	vectorIndex vector.VectorIndex,
	cfg config.IngestConfig,
	extractor *extract.Extractor,
	opts ...IndexerOption,
) *Indexer {
	if extractor == nil {
		extractor = extract.NewExtractor(cfg.Extensions...)
	}
	idx := &Indexer{
		storage:     store,
		embedder:    embedder,
		vectorIndex: vectorIndex,
		chunker:     NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		extractor:   extractor,
		batchSize:   defaultEmbedBatchSize,
		concurrency: defaultEmbedConcurrency,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Supports reports whether path has an ingestible extension.
func (idx *Indexer) Supports(path string) bool {
	return idx.extractor.Supports(path)
}

// IndexDocument chunks, embeds and stores input, replacing any earlier
// version of the same document. It returns the number of passages written.
func (idx *Indexer) IndexDocument(ctx context.Context, input *models.DocumentInput) (int, error) {
	if input.ID == "" {
		input.ID = uuid.New().String()
	}
	chunks := idx.chunker.Chunk(input.ID, input.Content)
	if len(chunks) == 0 {
		return 0, fmt.Errorf("document %s has no text", input.ID)
	}

	embeddings, err := idx.embedChunks(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("failed to generate embeddings: %w", err)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.removeVectors(ctx, input.ID); err != nil {
		return 0, err
	}
	doc := &models.Document{
		ID:       input.ID,
		Title:    input.Title,
		Source:   input.Source,
		Metadata: input.Metadata,
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]interface{})
	}
	doc.Metadata[metaKeyChunks] = len(chunks)
	if err := idx.storage.SaveDocument(ctx, doc, chunks); err != nil {
		return 0, fmt.Errorf("failed to store document: %w", err)
	}

	points := make([]vector.Point, len(chunks))
	for i, ch := range chunks {
		points[i] = vector.Point{ID: ch.ID, Vector: embeddings[i], Content: ch.Content}
	}
	if err := idx.vectorIndex.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("failed to index vectors: %w", err)
	}
	if err := idx.persist(); err != nil {
		return 0, err
	}
	idx.logger.Debug("document indexed", zap.String("doc_id", doc.ID), zap.Int("chunks", len(chunks)))
	return len(chunks), nil
}

// embedChunks embeds passages in batches, running up to idx.concurrency
// requests at once.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []*models.DocumentChunk) ([][]float32, error) {
	out := make([][]float32, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)
	for start := 0; start < len(chunks); start += idx.batchSize {
		end := start + idx.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		start, end := start, end
		g.Go(func() error {
			texts := make([]string, end-start)
			for i := range texts {
				texts[i] = chunks[start+i].Content
			}
			vecs, err := idx.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			if len(vecs) != len(texts) {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), len(texts))
			}
			copy(out[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// IndexFile extracts and indexes the file at path. The document ID is derived
// from the absolute path. Files already indexed with the same mtime and size
// are skipped.
func (idx *Indexer) IndexFile(ctx context.Context, path string) (*FileResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	if !idx.extractor.Supports(absPath) {
		return nil, fmt.Errorf("%s: %w", absPath, extract.ErrUnsupported)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}

	docID := FileDocID(absPath)
	result := &FileResult{DocumentID: docID, Path: absPath}
	if doc, ok := idx.unchanged(ctx, docID, absPath, info); ok {
		result.Skipped = true
		result.Chunks = metadataInt(doc.Metadata, metaKeyChunks)
		idx.logger.Debug("skipping unchanged file", zap.String("path", absPath))
		return result, nil
	}

	text, err := idx.extractor.Extract(absPath)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}
	n, err := idx.IndexDocument(ctx, &models.DocumentInput{
		ID:      docID,
		Title:   filepath.Base(absPath),
		Source:  absPath,
		Content: text,
		Metadata: map[string]interface{}{
			metaKeySourcePath: absPath,
			// Stored as strings; UnixNano exceeds float64 precision in JSON.
			metaKeySourceMtime: strconv.FormatInt(info.ModTime().UnixNano(), 10),
			metaKeySourceSize:  strconv.FormatInt(info.Size(), 10),
		},
	})
	if err != nil {
		return nil, err
	}
	result.Chunks = n
	idx.logger.Info("file indexed", zap.String("path", absPath), zap.Int("chunks", n))
	return result, nil
}

// unchanged returns the stored document when it was indexed from the same
// file with the same mtime and size.
func (idx *Indexer) unchanged(ctx context.Context, docID, absPath string, info os.FileInfo) (*models.Document, bool) {
	doc, err := idx.storage.GetDocument(ctx, docID)
	if err != nil || doc.Metadata == nil {
		return nil, false
	}
	if doc.Metadata[metaKeySourcePath] != absPath {
		return nil, false
	}
	if metadataInt64(doc.Metadata, metaKeySourceMtime) != info.ModTime().UnixNano() ||
		metadataInt64(doc.Metadata, metaKeySourceSize) != info.Size() {
		return nil, false
	}
	return doc, true
}

func metadataInt64(m map[string]interface{}, key string) int64 {
	switch n := m[key].(type) {
	case string:
		x, _ := strconv.ParseInt(n, 10, 64)
		return x
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func metadataInt(m map[string]interface{}, key string) int {
	return int(metadataInt64(m, key))
}

// IndexDirectory walks dir recursively and indexes every supported regular
// file. A failing file is recorded and the walk continues.
func (idx *Indexer) IndexDirectory(ctx context.Context, dir string) (*DirectoryResult, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", absDir)
	}

	result := &DirectoryResult{}
	err = filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != absDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !idx.extractor.Supports(path) {
			return nil
		}
		// Resolve symlinks so only regular files are indexed.
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		fr, indexErr := idx.IndexFile(ctx, path)
		switch {
		case indexErr != nil:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", path, indexErr))
			idx.logger.Warn("failed to index file", zap.String("path", path), zap.Error(indexErr))
		case fr.Skipped:
			result.Skipped++
			result.Chunks += fr.Chunks
		default:
			result.Indexed++
			result.Chunks += fr.Chunks
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	if result.Indexed+result.Skipped+result.Failed == 0 {
		return result, fmt.Errorf("%s: %w", absDir, ErrNoDocuments)
	}
	return result, nil
}

// DeleteFile removes the document indexed from path.
func (idx *Indexer) DeleteFile(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("absolute path: %w", err)
	}
	return idx.DeleteDocument(ctx, FileDocID(absPath))
}

// DeleteDocument removes a document from the vector index and storage.
// Deleting an unknown document is a no-op.
func (idx *Indexer) DeleteDocument(ctx context.Context, id string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	chunkIDs, err := idx.storage.DeleteDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if len(chunkIDs) == 0 {
		return nil
	}
	if err := idx.vectorIndex.Remove(ctx, chunkIDs); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	if err := idx.persist(); err != nil {
		return err
	}
	idx.logger.Debug("document deleted", zap.String("doc_id", id), zap.Int("chunks", len(chunkIDs)))
	return nil
}

// Clear removes every document, passage and vector.
func (idx *Indexer) Clear(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.storage.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear storage: %w", err)
	}
	if err := idx.vectorIndex.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset vector index: %w", err)
	}
	return idx.persist()
}

// removeVectors drops the vectors of a document's current chunks. Callers hold idx.mu.
func (idx *Indexer) removeVectors(ctx context.Context, docID string) error {
	chunks, err := idx.storage.GetChunksByDocumentID(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to get chunks: %w", err)
	}
	if len(chunks) == 0 {
		return nil
	}
	ids := make([]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
	}
	if err := idx.vectorIndex.Remove(ctx, ids); err != nil {
		return fmt.Errorf("failed to delete from vector index: %w", err)
	}
	return nil
}

func (idx *Indexer) persist() error {
	p, ok := idx.vectorIndex.(vector.Persister)
	if !ok || idx.indexPath == "" {
		return nil
	}
	if err := p.Save(idx.indexPath); err != nil {
		return fmt.Errorf("failed to save vector index: %w", err)
	}
	return nil
}

// Info reports the size of the collection. DiskBytes covers the database
// files and the persisted vector index when they are local.
func (idx *Indexer) Info(ctx context.Context) (*models.CollectionInfo, error) {
	docs, err := idx.storage.CountDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	chunks, err := idx.storage.CountChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	vectors, err := idx.vectorIndex.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count vectors: %w", err)
	}
	info := &models.CollectionInfo{
		Name:      idx.name,
		Backend:   idx.backend,
		Documents: docs,
		Chunks:    chunks,
		Vectors:   vectors,
	}
	var paths []string
	if f, ok := idx.storage.(interface{ Files() []string }); ok {
		paths = append(paths, f.Files()...)
	}
	if _, ok := idx.vectorIndex.(vector.Persister); ok {
		paths = append(paths, idx.indexPath)
	}
	if size, err := storage.DiskUsageBytes(paths...); err == nil {
		info.DiskBytes = size
	}
	return info, nil
}

// IsUnsupported reports whether err came from a file type the indexer skips.
func IsUnsupported(err error) bool {
	return errors.Is(err, extract.ErrUnsupported)
}
