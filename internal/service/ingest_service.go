package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jmorrel/helpqa/internal/ai"
	"github.com/jmorrel/helpqa/internal/chunker"
	"github.com/jmorrel/helpqa/internal/index"
	"github.com/jmorrel/helpqa/internal/indexstore"
	"github.com/jmorrel/helpqa/internal/model"
	appErr "github.com/jmorrel/helpqa/internal/pkg/errors"
)

var (
	reSpecialChars    = regexp.MustCompile(`[^\w\s.,!?-]`)
	reExtraWhitespace = regexp.MustCompile(`\s+`)
	reExtraPeriods    = regexp.MustCompile(`\.+`)
)

// IngestService turns a document corpus into a searchable vector index:
// clean, chunk, embed, build, persist. Chunks whose embedding batch
// failed are dropped with a log line rather than aborting the run.
type IngestService struct {
	chunker  *chunker.SentenceChunker
	embedder *ai.BatchEmbedder
}

func NewIngestService(c *chunker.SentenceChunker, embedder *ai.BatchEmbedder) *IngestService {
	return &IngestService{chunker: c, embedder: embedder}
}

// LoadDocumentsCSV reads documents from CSV with url, title and text
// columns. Rows missing a title or text are skipped.
func (s *IngestService) LoadDocumentsCSV(r io.Reader) ([]model.Document, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"url", "title", "text"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv missing column %q: %w", required, appErr.ErrInvalid)
		}
	}
	docs := make([]model.Document, 0)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		doc := model.Document{
			URL:   field(record, cols["url"]),
			Title: field(record, cols["title"]),
			Text:  field(record, cols["text"]),
		}
		if doc.Title == "" || doc.Text == "" {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

// BuildIndex chunks and embeds the documents and builds a fresh index
// over the chunks that embedded successfully.
func (s *IngestService) BuildIndex(ctx context.Context, docs []model.Document) (*index.VectorIndex, error) {
	logger := logutil.GetLogger(ctx)
	texts := make([]string, 0)
	metadata := make([]model.ChunkMetadata, 0)
	for _, doc := range docs {
		cleaned := cleanText(doc.Title + "\n\n" + doc.Text)
		chunks := s.chunker.Chunk(cleaned)
		for i, chunk := range chunks {
			texts = append(texts, chunk)
			metadata = append(metadata, model.ChunkMetadata{
				URL:         doc.URL,
				Title:       doc.Title,
				Text:        chunk,
				ChunkIndex:  i,
				TotalChunks: len(chunks),
			})
		}
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("no chunks to index: %w", appErr.ErrInvalid)
	}
	vectors := s.embedder.EmbedAll(ctx, texts, ai.TaskRetrievalDocument)
	keptVectors := make([][]float32, 0, len(vectors))
	keptMetadata := make([]model.ChunkMetadata, 0, len(vectors))
	for i, vector := range vectors {
		if vector == nil {
			logger.Warn("dropping chunk without embedding",
				zap.String("url", metadata[i].URL), zap.Int("chunk_index", metadata[i].ChunkIndex))
			continue
		}
		keptVectors = append(keptVectors, vector)
		keptMetadata = append(keptMetadata, metadata[i])
	}
	if len(keptVectors) == 0 {
		return nil, fmt.Errorf("all chunks failed to embed: %w", appErr.ErrEmbeddingUnavailable)
	}
	idx := index.New()
	if err := idx.Build(keptVectors, keptMetadata); err != nil {
		return nil, err
	}
	logger.Info("index built",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(texts)),
		zap.Int("indexed", len(keptVectors)),
	)
	return idx, nil
}

// Ingest runs the whole offline pipeline and persists the artifacts.
func (s *IngestService) Ingest(ctx context.Context, r io.Reader, store indexstore.Store, baseKey string) (*index.VectorIndex, error) {
	docs, err := s.LoadDocumentsCSV(r)
	if err != nil {
		return nil, err
	}
	idx, err := s.BuildIndex(ctx, docs)
	if err != nil {
		return nil, err
	}
	if err := idx.Persist(ctx, store, baseKey); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}
	return idx, nil
}

func cleanText(text string) string {
	text = reSpecialChars.ReplaceAllString(text, " ")
	text = reExtraWhitespace.ReplaceAllString(text, " ")
	text = reExtraPeriods.ReplaceAllString(text, ".")
	return strings.TrimSpace(text)
}
