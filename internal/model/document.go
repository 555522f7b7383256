package model

// Document is one cleaned knowledge-base record as supplied by the
// upstream acquisition pipeline. Title and Text are required.
type Document struct {
	URL   string
	Title string
	Text  string
}

// Chunk is a bounded-length segment of one document, the unit of retrieval.
// Index is 0-based and contiguous within the document.
type Chunk struct {
	DocumentID  int
	Index       int
	TotalChunks int
	Text        string
}

// ChunkMetadata is the per-id record stored alongside each index vector.
// Rows are written to the metadata artifact in id order.
type ChunkMetadata struct {
	URL         string
	Title       string
	Text        string
	ChunkIndex  int
	TotalChunks int
}

// RankedChunk is a search hit joined back to its metadata.
type RankedChunk struct {
	URL      string
	Title    string
	Text     string
	Distance float64
}
