package index

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jmorrel/helpqa/internal/indexstore"
	"github.com/jmorrel/helpqa/internal/model"
	appErr "github.com/jmorrel/helpqa/internal/pkg/errors"
)

// Artifact layout: two objects per index, side by side under one base key.
// The vector file is a little-endian header (magic, version, dimension,
// count) followed by count*dimension float32 values in id order; the
// metadata csv has one row per id in id order.
const (
	vectorMagic   uint32 = 0x48515658 // "HQVX"
	vectorVersion uint32 = 1
)

var metadataHeader = []string{"url", "title", "text", "chunk_index", "total_chunks"}

func vectorKey(baseKey string) string   { return baseKey + "_vectors.bin" }
func metadataKey(baseKey string) string { return baseKey + "_metadata.csv" }

type readSeekNopCloser struct {
	*bytes.Reader
}

func (readSeekNopCloser) Close() error { return nil }

// Persist writes both artifacts to the store. A later Load of the same
// base key reproduces identical search results for any query.
func (idx *VectorIndex) Persist(ctx context.Context, store indexstore.Store, baseKey string) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if !idx.built {
		return appErr.ErrNotBuilt
	}

	vecBuf := &bytes.Buffer{}
	header := []uint32{vectorMagic, vectorVersion, uint32(idx.dimension), uint32(len(idx.vectors))}
	for _, v := range header {
		if err := binary.Write(vecBuf, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, vec := range idx.vectors {
		if err := binary.Write(vecBuf, binary.LittleEndian, vec); err != nil {
			return err
		}
	}

	metaBuf := &bytes.Buffer{}
	w := csv.NewWriter(metaBuf)
	if err := w.Write(metadataHeader); err != nil {
		return err
	}
	for _, m := range idx.metadata {
		row := []string{m.URL, m.Title, m.Text, strconv.Itoa(m.ChunkIndex), strconv.Itoa(m.TotalChunks)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	vecReader := readSeekNopCloser{bytes.NewReader(vecBuf.Bytes())}
	if err := store.Save(ctx, vectorKey(baseKey), vecReader, int64(vecBuf.Len())); err != nil {
		return fmt.Errorf("save vector artifact: %w", err)
	}
	metaReader := readSeekNopCloser{bytes.NewReader(metaBuf.Bytes())}
	if err := store.Save(ctx, metadataKey(baseKey), metaReader, int64(metaBuf.Len())); err != nil {
		return fmt.Errorf("save metadata artifact: %w", err)
	}
	return nil
}

// Load reads both artifacts and rebuilds the index. A pair whose row
// counts disagree is rejected as corrupt.
func Load(ctx context.Context, store indexstore.Store, baseKey string) (*VectorIndex, error) {
	vecFile, err := store.Open(ctx, vectorKey(baseKey))
	if err != nil {
		return nil, fmt.Errorf("open vector artifact: %w", err)
	}
	defer vecFile.Close()
	vectors, err := readVectors(vecFile)
	if err != nil {
		return nil, err
	}

	metaFile, err := store.Open(ctx, metadataKey(baseKey))
	if err != nil {
		return nil, fmt.Errorf("open metadata artifact: %w", err)
	}
	defer metaFile.Close()
	metadata, err := readMetadata(metaFile)
	if err != nil {
		return nil, err
	}

	if len(vectors) != len(metadata) {
		return nil, fmt.Errorf("%w: %d vectors vs %d metadata rows", appErr.ErrCorruptIndex, len(vectors), len(metadata))
	}
	idx := New()
	if err := idx.Build(vectors, metadata); err != nil {
		return nil, err
	}
	return idx, nil
}

func readVectors(r io.Reader) ([][]float32, error) {
	var header [4]uint32
	for i := range header {
		if err := binary.Read(r, binary.LittleEndian, &header[i]); err != nil {
			return nil, fmt.Errorf("%w: short vector header: %v", appErr.ErrCorruptIndex, err)
		}
	}
	if header[0] != vectorMagic {
		return nil, fmt.Errorf("%w: bad magic %#x", appErr.ErrCorruptIndex, header[0])
	}
	if header[1] != vectorVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", appErr.ErrCorruptIndex, header[1])
	}
	dim := int(header[2])
	count := int(header[3])
	if dim <= 0 || count < 0 {
		return nil, fmt.Errorf("%w: dimension %d, count %d", appErr.ErrCorruptIndex, dim, count)
	}
	vectors := make([][]float32, count)
	for i := 0; i < count; i++ {
		vec := make([]float32, dim)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return nil, fmt.Errorf("%w: truncated vector %d: %v", appErr.ErrCorruptIndex, i, err)
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func readMetadata(r io.Reader) ([]model.ChunkMetadata, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(metadataHeader)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: metadata csv: %v", appErr.ErrCorruptIndex, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: metadata csv has no header", appErr.ErrCorruptIndex)
	}
	metadata := make([]model.ChunkMetadata, 0, len(rows)-1)
	for i, row := range rows[1:] {
		chunkIndex, err := strconv.Atoi(row[3])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d chunk_index: %v", appErr.ErrCorruptIndex, i, err)
		}
		totalChunks, err := strconv.Atoi(row[4])
		if err != nil {
			return nil, fmt.Errorf("%w: row %d total_chunks: %v", appErr.ErrCorruptIndex, i, err)
		}
		metadata = append(metadata, model.ChunkMetadata{
			URL:         row[0],
			Title:       row[1],
			Text:        row[2],
			ChunkIndex:  chunkIndex,
			TotalChunks: totalChunks,
		})
	}
	return metadata, nil
}
