package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tieubaoca/embedding-be/database"
	"github.com/tieubaoca/embedding-be/types"
	"github.com/tieubaoca/embedding-be/utils"
)

type fakeEmbedder struct {
	calls [][]string
	fail  bool
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls = append(f.calls, texts)
	if f.fail {
		return nil, errors.New("embedder unavailable")
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{0.1, 0.2, 0.3}
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }
func (f *fakeEmbedder) Model() string  { return "fake-embedding" }

type fakeStore struct {
	inserted   []database.StoredChunk
	embeddings [][]float32
	deleted    []string
	chunks     []database.StoredChunk
}

func (f *fakeStore) BatchInsertChunks(ctx context.Context, chunks []database.StoredChunk, embeddings [][]float32) error {
	f.inserted = append(f.inserted, chunks...)
	f.embeddings = append(f.embeddings, embeddings...)
	return nil
}

func (f *fakeStore) DeleteByFileHash(ctx context.Context, fileHash string) error {
	f.deleted = append(f.deleted, fileHash)
	return nil
}

func (f *fakeStore) SearchSimilar(ctx context.Context, vector []float32, filter database.SearchFilter, limit int) ([]database.StoredChunk, error) {
	return f.chunks, nil
}

func (f *fakeStore) ChunksByFileHash(ctx context.Context, fileHash string, limit int) ([]database.StoredChunk, error) {
	return f.chunks, nil
}

func (f *fakeStore) CollectionInfo(ctx context.Context) (*database.CollectionInfo, error) {
	return &database.CollectionInfo{
		Class:       "DocumentChunk",
		ObjectCount: int64(len(f.inserted)),
		Vectorizer:  "none",
	}, nil
}

func (f *fakeStore) Live(ctx context.Context) error { return nil }

func newTestEmbeddingService(store *fakeStore, embedder Embedder) *EmbeddingService {
	documents := NewDocumentService(&fakeRecognizer{}, "auto")
	chunker := NewChunker(types.DocumentServiceConfig{
		ChunkSize:      100,
		ChunkOverlap:   40,
		MinChunkLength: 5,
	})
	return NewEmbeddingService(documents, chunker, embedder, store, 1, nil)
}

func TestProcessDocumentStoresChunks(t *testing.T) {
	store := &fakeStore{}
	embedder := &fakeEmbedder{}
	s := newTestEmbeddingService(store, embedder)

	content := []byte(sentenceText(10))
	result, err := s.ProcessDocument(context.Background(), content, "notes.txt", "", nil)
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}

	if result.DocumentID != utils.FileHash(content) {
		t.Errorf("DocumentID = %q, want the file hash", result.DocumentID)
	}
	if len(result.Chunks) == 0 {
		t.Fatal("no chunks produced")
	}
	if len(store.inserted) != len(result.Chunks) {
		t.Errorf("stored %d chunks, want %d", len(store.inserted), len(result.Chunks))
	}
	if len(store.embeddings) != len(result.Chunks) {
		t.Errorf("stored %d embeddings, want %d", len(store.embeddings), len(result.Chunks))
	}

	for i, meta := range result.Metadata {
		if meta.ChunkIndex != i {
			t.Errorf("chunk %d has index %d", i, meta.ChunkIndex)
		}
		if meta.TotalChunks != len(result.Chunks) {
			t.Errorf("chunk %d TotalChunks = %d, want %d", i, meta.TotalChunks, len(result.Chunks))
		}
		if meta.Filename != "notes.txt" {
			t.Errorf("chunk %d filename = %q", i, meta.Filename)
		}
		if meta.FileType != "text/plain" {
			t.Errorf("chunk %d file type = %q", i, meta.FileType)
		}
		if meta.FileHash != result.DocumentID {
			t.Errorf("chunk %d hash = %q", i, meta.FileHash)
		}
	}
}

func TestProcessDocumentJSONMetadata(t *testing.T) {
	store := &fakeStore{}
	s := newTestEmbeddingService(store, &fakeEmbedder{})

	content := []byte(sentenceText(4))
	result, err := s.ProcessDocument(context.Background(), content, "notes.txt", `{"course":"math"}`, nil)
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	meta := result.Metadata[0]
	if meta.Extra["course"] != "math" {
		t.Errorf("Extra = %v, want course=math", meta.Extra)
	}
	if meta.RawMetadata != "" {
		t.Errorf("RawMetadata = %q, want empty for valid json", meta.RawMetadata)
	}
}

func TestProcessDocumentRawMetadataFallback(t *testing.T) {
	store := &fakeStore{}
	s := newTestEmbeddingService(store, &fakeEmbedder{})

	content := []byte(sentenceText(4))
	result, err := s.ProcessDocument(context.Background(), content, "notes.txt", "not a json object", nil)
	if err != nil {
		t.Fatalf("ProcessDocument: %v", err)
	}
	meta := result.Metadata[0]
	if meta.RawMetadata != "not a json object" {
		t.Errorf("RawMetadata = %q, want raw string kept", meta.RawMetadata)
	}
	if meta.Extra != nil {
		t.Errorf("Extra = %v, want nil", meta.Extra)
	}
}

func TestProcessDocumentEmbedderFailure(t *testing.T) {
	store := &fakeStore{}
	s := newTestEmbeddingService(store, &fakeEmbedder{fail: true})

	_, err := s.ProcessDocument(context.Background(), []byte(sentenceText(4)), "notes.txt", "", nil)
	if err == nil {
		t.Fatal("expected error from failing embedder")
	}
	if len(store.inserted) != 0 {
		t.Errorf("stored %d chunks despite embedding failure", len(store.inserted))
	}
}

func TestProcessTextbookAttachesBookMetadata(t *testing.T) {
	store := &fakeStore{}
	s := newTestEmbeddingService(store, &fakeEmbedder{})

	nativeText := strings.Repeat("some textbook page content with enough characters here. ", 2)
	src := &fakeSource{pages: []fakePage{{text: nativeText}, {text: nativeText}}}
	s.documents.openDocument = func(content []byte) (pageSource, error) {
		return src, nil
	}

	result, err := s.ProcessTextbook(context.Background(), []byte("pdf bytes"), "SGK_TIN_CD_3.pdf", types.TextbookInfo{}, "", nil)
	if err != nil {
		t.Fatalf("ProcessTextbook: %v", err)
	}

	if result.Book.Subject != "Tin học" {
		t.Errorf("Subject = %q, want Tin học", result.Book.Subject)
	}
	if len(result.PageInfo) != 2 {
		t.Errorf("PageInfo has %d pages, want 2", len(result.PageInfo))
	}
	for i, meta := range result.Metadata {
		if meta.Subject != "Tin học" || meta.Publisher != "Cánh Diều" || meta.Grade != "Lớp 3" {
			t.Errorf("chunk %d book metadata = %+v", i, meta)
		}
		if meta.BookFullName == "" || meta.ProductName != meta.BookFullName {
			t.Errorf("chunk %d full name = %q, product = %q", i, meta.BookFullName, meta.ProductName)
		}
		if len(meta.Pages) == 0 {
			t.Errorf("chunk %d has no pages", i)
		}
		if meta.PageRange == "" {
			t.Errorf("chunk %d has no page range", i)
		}
	}
}

func TestProcessTextbookCallerFieldsOverride(t *testing.T) {
	store := &fakeStore{}
	s := newTestEmbeddingService(store, &fakeEmbedder{})

	nativeText := strings.Repeat("some textbook page content with enough characters here. ", 2)
	src := &fakeSource{pages: []fakePage{{text: nativeText}}}
	s.documents.openDocument = func(content []byte) (pageSource, error) {
		return src, nil
	}

	info := types.TextbookInfo{
		BookName:    "Tin học 3 bản đặc biệt",
		Publisher:   "Nhà xuất bản Giáo Dục",
		Grade:       "Lớp 4",
		ProductName: "Combo Tin học tiểu học",
	}
	result, err := s.ProcessTextbook(context.Background(), []byte("pdf bytes"), "SGK_TIN_CD_3.pdf", info, "", nil)
	if err != nil {
		t.Fatalf("ProcessTextbook: %v", err)
	}

	if result.Book.FullName != info.BookName {
		t.Errorf("FullName = %q, want the caller-supplied book name", result.Book.FullName)
	}
	if result.Book.Subject != "Tin học" {
		t.Errorf("Subject = %q, want the filename-derived subject kept", result.Book.Subject)
	}
	for i, meta := range result.Metadata {
		if meta.Publisher != info.Publisher || meta.Grade != info.Grade {
			t.Errorf("chunk %d publisher/grade = %q/%q, want the caller values", i, meta.Publisher, meta.Grade)
		}
		if meta.BookFullName != info.BookName {
			t.Errorf("chunk %d full name = %q, want %q", i, meta.BookFullName, info.BookName)
		}
		if meta.ProductName != info.ProductName {
			t.Errorf("chunk %d product = %q, want %q", i, meta.ProductName, info.ProductName)
		}
	}
}

func TestProcessTextbookProductNameDefaultsToBookName(t *testing.T) {
	store := &fakeStore{}
	s := newTestEmbeddingService(store, &fakeEmbedder{})

	nativeText := strings.Repeat("some textbook page content with enough characters here. ", 2)
	src := &fakeSource{pages: []fakePage{{text: nativeText}}}
	s.documents.openDocument = func(content []byte) (pageSource, error) {
		return src, nil
	}

	info := types.TextbookInfo{BookName: "Toán nâng cao", Publisher: "NXB Trẻ"}
	result, err := s.ProcessTextbook(context.Background(), []byte("pdf bytes"), "SGK_TOAN_KN_7.pdf", info, "", nil)
	if err != nil {
		t.Fatalf("ProcessTextbook: %v", err)
	}
	for i, meta := range result.Metadata {
		if meta.ProductName != "Toán nâng cao" {
			t.Errorf("chunk %d product = %q, want the book name", i, meta.ProductName)
		}
	}
}

func TestValidate(t *testing.T) {
	s := newTestEmbeddingService(&fakeStore{}, &fakeEmbedder{})

	if err := s.Validate([]byte("ok"), "file.txt"); err != nil {
		t.Errorf("Validate: %v", err)
	}

	err := s.Validate([]byte("x"), "archive.zip")
	if !errors.Is(err, types.ErrUnsupportedFileType) {
		t.Errorf("err = %v, want ErrUnsupportedFileType", err)
	}

	big := make([]byte, 2<<20)
	err = s.Validate(big, "file.txt")
	if !errors.Is(err, types.ErrSizeLimitExceeded) {
		t.Errorf("err = %v, want ErrSizeLimitExceeded", err)
	}
}

func TestValidateHonorsConfiguredFileTypes(t *testing.T) {
	documents := NewDocumentService(&fakeRecognizer{}, "auto")
	chunker := NewChunker(types.DocumentServiceConfig{
		ChunkSize:      100,
		ChunkOverlap:   40,
		MinChunkLength: 5,
	})
	s := NewEmbeddingService(documents, chunker, &fakeEmbedder{}, &fakeStore{}, 1, []string{".txt", ".PDF"})

	if err := s.Validate([]byte("ok"), "notes.txt"); err != nil {
		t.Errorf("Validate(.txt): %v", err)
	}
	if err := s.Validate([]byte("ok"), "book.pdf"); err != nil {
		t.Errorf("extension match must be case-insensitive: %v", err)
	}
	err := s.Validate([]byte("ok"), "scan.png")
	if !errors.Is(err, types.ErrUnsupportedFileType) {
		t.Errorf("err = %v, want ErrUnsupportedFileType for an extension outside the configured set", err)
	}
}

func TestPageRangeLabel(t *testing.T) {
	tests := []struct {
		pages []int
		want  string
	}{
		{nil, ""},
		{[]int{7}, "Trang 7"},
		{[]int{3, 4, 5}, "3-5"},
	}
	for _, tt := range tests {
		if got := PageRangeLabel(tt.pages); got != tt.want {
			t.Errorf("PageRangeLabel(%v) = %q, want %q", tt.pages, got, tt.want)
		}
	}
}

func TestSearchUsesEmbeddedQuery(t *testing.T) {
	store := &fakeStore{chunks: []database.StoredChunk{
		{Content: "found chunk", Distance: 0.25},
	}}
	embedder := &fakeEmbedder{}
	s := newTestEmbeddingService(store, embedder)

	response, err := s.Search(context.Background(), types.SearchRequest{Query: "tin học lớp 3"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(embedder.calls) != 1 || embedder.calls[0][0] != "tin học lớp 3" {
		t.Errorf("embedder calls = %v", embedder.calls)
	}
	if response.Total != 1 || response.Results[0].Content != "found chunk" {
		t.Errorf("response = %+v", response)
	}
	if response.Results[0].Score != 0.75 {
		t.Errorf("score = %v, want 0.75", response.Results[0].Score)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	s := newTestEmbeddingService(&fakeStore{}, &fakeEmbedder{})

	if _, err := s.Search(context.Background(), types.SearchRequest{Query: "  "}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestDeleteDocument(t *testing.T) {
	store := &fakeStore{}
	s := newTestEmbeddingService(store, &fakeEmbedder{})

	if err := s.DeleteDocument(context.Background(), "abc123"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != "abc123" {
		t.Errorf("deleted = %v", store.deleted)
	}
}
