package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/tieubaoca/embedding-be/database"
	"github.com/tieubaoca/embedding-be/types"
	"github.com/tieubaoca/embedding-be/utils"
)

// EmbeddingService drives the document-to-chunk pipeline: validate,
// extract, chunk, embed and persist.
type EmbeddingService struct {
	documents     *DocumentService
	chunker       *Chunker
	embedder      Embedder
	store         database.VectorDatabase
	maxFileSizeMB int
	// supportedExts restricts uploads to the configured extensions.
	// Empty means every extension the extractor knows how to handle.
	supportedExts map[string]bool
}

func NewEmbeddingService(
	documents *DocumentService,
	chunker *Chunker,
	embedder Embedder,
	store database.VectorDatabase,
	maxFileSizeMB int,
	supportedFileTypes []string,
) *EmbeddingService {
	var supported map[string]bool
	if len(supportedFileTypes) > 0 {
		supported = make(map[string]bool, len(supportedFileTypes))
		for _, ext := range supportedFileTypes {
			supported[strings.ToLower(ext)] = true
		}
	}
	return &EmbeddingService{
		documents:     documents,
		chunker:       chunker,
		embedder:      embedder,
		store:         store,
		maxFileSizeMB: maxFileSizeMB,
		supportedExts: supported,
	}
}

// ProgressFunc reports pipeline progress in [0, 1] with a short stage
// message.
type ProgressFunc func(stage string, progress float64)

func nopProgress(string, float64) {}

// ProcessDocument runs the full pipeline on a generic document. The
// optional metadata string is attached to every chunk: valid JSON is
// merged as structured fields, anything else is kept verbatim.
func (s *EmbeddingService) ProcessDocument(ctx context.Context, content []byte, filename, metadata string, progress ProgressFunc) (*types.ProcessResult, error) {
	if progress == nil {
		progress = nopProgress
	}
	if err := s.Validate(content, filename); err != nil {
		return nil, err
	}

	progress("extracting text", 0.1)
	fullText, pages, err := s.extract(content, filename)
	if err != nil {
		return nil, err
	}

	progress("chunking", 0.4)
	records := s.chunker.ChunkTextWithPages(fullText, pages)
	if len(records) == 0 {
		return nil, types.ErrNoTextExtracted
	}

	progress("embedding", 0.6)
	texts := chunkTexts(records)
	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	fileHash := utils.FileHash(content)
	chunkMeta := s.buildChunkMetadata(records, filename, fileHash, metadata, nil, "")

	progress("storing", 0.8)
	if err := s.storeChunks(ctx, records, chunkMeta, embeddings); err != nil {
		return nil, err
	}

	progress("done", 1)
	return &types.ProcessResult{
		DocumentID:   fileHash,
		Chunks:       texts,
		Embeddings:   embeddings,
		Metadata:     chunkMeta,
		OriginalText: fullText,
	}, nil
}

// ProcessTextbook runs the pipeline on a textbook PDF, combining the
// caller-supplied book fields with the filename convention and keeping
// the page-aware records in the result.
func (s *EmbeddingService) ProcessTextbook(ctx context.Context, content []byte, filename string, info types.TextbookInfo, metadata string, progress ProgressFunc) (*types.TextbookResult, error) {
	if progress == nil {
		progress = nopProgress
	}
	if err := s.Validate(content, filename); err != nil {
		return nil, err
	}

	book := ParseBookMetadata(filename)
	ApplyTextbookInfo(&book, info)
	productName := info.ProductName
	if productName == "" {
		productName = book.FullName
	}

	progress("extracting text", 0.1)
	fullText, pages, err := s.extract(content, filename)
	if err != nil {
		return nil, err
	}

	progress("chunking", 0.4)
	records := s.chunker.ChunkTextWithPages(fullText, pages)
	if len(records) == 0 {
		return nil, types.ErrNoTextExtracted
	}

	progress("embedding", 0.6)
	texts := chunkTexts(records)
	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}

	fileHash := utils.FileHash(content)
	chunkMeta := s.buildChunkMetadata(records, filename, fileHash, metadata, &book, productName)

	progress("storing", 0.8)
	if err := s.storeChunks(ctx, records, chunkMeta, embeddings); err != nil {
		return nil, err
	}

	progress("done", 1)
	return &types.TextbookResult{
		ProcessResult: types.ProcessResult{
			DocumentID:   fileHash,
			Chunks:       texts,
			Embeddings:   embeddings,
			Metadata:     chunkMeta,
			OriginalText: fullText,
		},
		PageInfo:     pages,
		ChunkRecords: records,
		Book:         book,
	}, nil
}

// CollectionInfo reports schema and object count of the chunk
// collection backing the pipeline.
func (s *EmbeddingService) CollectionInfo(ctx context.Context) (*database.CollectionInfo, error) {
	return s.store.CollectionInfo(ctx)
}

// DeleteDocument removes every stored chunk of a document.
func (s *EmbeddingService) DeleteDocument(ctx context.Context, fileHash string) error {
	return s.store.DeleteByFileHash(ctx, fileHash)
}

// DocumentMetadata summarizes the stored state of one document.
func (s *EmbeddingService) DocumentMetadata(ctx context.Context, fileHash string) (*types.DocumentMetadataResponse, error) {
	chunks, err := s.store.ChunksByFileHash(ctx, fileHash, 1)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, types.ErrNoTextExtracted
	}
	meta := chunks[0].Metadata
	return &types.DocumentMetadataResponse{
		DocumentID:  fileHash,
		Filename:    meta.Filename,
		FileType:    meta.FileType,
		FileHash:    meta.FileHash,
		TotalChunks: meta.TotalChunks,
		Book: types.BookMetadata{
			BookType:  meta.BookType,
			Subject:   meta.Subject,
			Publisher: meta.Publisher,
			Grade:     meta.Grade,
			FullName:  meta.BookFullName,
		},
	}, nil
}

// Search embeds the query and runs a similarity search over the
// stored chunks.
func (s *EmbeddingService) Search(ctx context.Context, req types.SearchRequest) (*types.SearchResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	vectors, err := s.embedder.Embed(ctx, []string{req.Query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	chunks, err := s.store.SearchSimilar(ctx, vectors[0], database.SearchFilter{
		Subject:  req.Subject,
		Grade:    req.Grade,
		FileHash: req.FileHash,
	}, limit)
	if err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		results = append(results, types.SearchResult{
			Content:  chunk.Content,
			Metadata: chunk.Metadata,
			Score:    1 - chunk.Distance,
		})
	}
	return &types.SearchResponse{Results: results, Total: len(results)}, nil
}

// Validate rejects unsupported file types and files over the size
// ceiling before any expensive work happens.
func (s *EmbeddingService) Validate(content []byte, filename string) error {
	if utils.MIMETypeFromFilename(filename) == "" {
		return fmt.Errorf("%w: %s", types.ErrUnsupportedFileType, filename)
	}
	if s.supportedExts != nil && !s.supportedExts[strings.ToLower(filepath.Ext(filename))] {
		return fmt.Errorf("%w: %s", types.ErrUnsupportedFileType, filename)
	}
	if s.maxFileSizeMB > 0 && len(content) > s.maxFileSizeMB*1024*1024 {
		return fmt.Errorf("%w: %d bytes exceeds %d MB", types.ErrSizeLimitExceeded, len(content), s.maxFileSizeMB)
	}
	return nil
}

// extract routes to the page-aware PDF path or wraps flat text in a
// single page record so everything chunks the same way.
func (s *EmbeddingService) extract(content []byte, filename string) (string, []types.PageRecord, error) {
	if utils.MIMETypeFromFilename(filename) == "application/pdf" {
		return s.documents.ExtractPDFWithPages(content)
	}
	text, err := s.documents.ExtractText(content, filename)
	if err != nil {
		return "", nil, err
	}
	if strings.TrimSpace(text) == "" {
		return "", nil, types.ErrNoTextExtracted
	}
	return text, SinglePageRecord(text), nil
}

func (s *EmbeddingService) buildChunkMetadata(records []types.ChunkRecord, filename, fileHash, metadata string, book *types.BookMetadata, productName string) []types.ChunkMetadata {
	extra, raw := parseExtraMetadata(metadata)

	result := make([]types.ChunkMetadata, 0, len(records))
	for i, record := range records {
		meta := types.ChunkMetadata{
			Filename:    filename,
			FileType:    utils.MIMETypeFromFilename(filename),
			FileHash:    fileHash,
			ChunkIndex:  i,
			TotalChunks: len(records),
			Pages:       record.Pages,
			PageRange:   PageRangeLabel(record.Pages),
			CharStart:   record.CharStart,
			CharEnd:     record.CharEnd,
			Extra:       extra,
			RawMetadata: raw,
		}
		if book != nil {
			meta.BookType = book.BookType
			meta.Subject = book.Subject
			meta.Publisher = book.Publisher
			meta.Grade = book.Grade
			meta.BookFullName = book.FullName
			meta.ProductName = productName
		}
		result = append(result, meta)
	}
	return result
}

func (s *EmbeddingService) storeChunks(ctx context.Context, records []types.ChunkRecord, metadata []types.ChunkMetadata, embeddings [][]float32) error {
	now := time.Now().Unix()
	stored := make([]database.StoredChunk, 0, len(records))
	for i, record := range records {
		stored = append(stored, database.StoredChunk{
			Content:   record.Text,
			Metadata:  metadata[i],
			CreatedAt: now,
		})
	}
	if err := s.store.BatchInsertChunks(ctx, stored, embeddings); err != nil {
		return fmt.Errorf("failed to store chunks: %w", err)
	}
	return nil
}

// parseExtraMetadata merges a valid JSON object into structured extra
// fields and keeps anything else as the raw string.
func parseExtraMetadata(metadata string) (map[string]any, string) {
	if strings.TrimSpace(metadata) == "" {
		return nil, ""
	}
	var extra map[string]any
	if err := json.Unmarshal([]byte(metadata), &extra); err != nil {
		log.Printf("metadata is not a json object, keeping raw string")
		return nil, metadata
	}
	return extra, ""
}

// PageRangeLabel renders the page list for display: one page becomes
// "Trang N", several become "min-max".
func PageRangeLabel(pages []int) string {
	switch len(pages) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("Trang %d", pages[0])
	default:
		return fmt.Sprintf("%d-%d", pages[0], pages[len(pages)-1])
	}
}

func chunkTexts(records []types.ChunkRecord) []string {
	texts := make([]string, 0, len(records))
	for _, record := range records {
		texts = append(texts, record.Text)
	}
	return texts
}
