package database

import (
	"context"

	"github.com/tieubaoca/embedding-be/types"
)

// StoredChunk is one chunk object as persisted in the vector store.
type StoredChunk struct {
	ID        string              `json:"id"`
	Content   string              `json:"content"`
	Metadata  types.ChunkMetadata `json:"metadata"`
	Distance  float32             `json:"distance,omitempty"`
	CreatedAt int64               `json:"created_at"`
}

// SearchFilter narrows chunk queries by book metadata or document.
type SearchFilter struct {
	Subject  string
	Grade    string
	FileHash string
}

// CollectionInfo summarizes the chunk collection as the store holds
// it.
type CollectionInfo struct {
	Class       string   `json:"class"`
	ObjectCount int64    `json:"object_count"`
	Properties  []string `json:"properties"`
	Vectorizer  string   `json:"vectorizer"`
}

// VectorDatabase defines the interface for chunk storage and
// retrieval. Embeddings are always supplied by the caller, the store
// never vectorizes.
type VectorDatabase interface {
	BatchInsertChunks(ctx context.Context, chunks []StoredChunk, embeddings [][]float32) error
	DeleteByFileHash(ctx context.Context, fileHash string) error

	SearchSimilar(ctx context.Context, vector []float32, filter SearchFilter, limit int) ([]StoredChunk, error)
	ChunksByFileHash(ctx context.Context, fileHash string, limit int) ([]StoredChunk, error)

	CollectionInfo(ctx context.Context) (*CollectionInfo, error)
	Live(ctx context.Context) error
}
