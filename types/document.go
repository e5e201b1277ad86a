package types

// PageRecord describes one source page and its span inside the
// concatenated document text. Pages are joined with PageSeparator, so
// CharStart of page n+1 equals CharEnd of page n plus the separator
// length.
type PageRecord struct {
	PageNumber int    `json:"page_number"` // 1-based
	Text       string `json:"text"`
	CharStart  int    `json:"char_start"`
	CharEnd    int    `json:"char_end"`
	OCRUsed    bool   `json:"ocr_used"`
}

// PageSeparator joins per-page texts into the document's full text.
const PageSeparator = "\n\n"

// ChunkRecord is a bounded span of the full text together with the
// page numbers whose intervals it overlaps. CharStart and CharEnd are
// byte offsets into the concatenated page text.
type ChunkRecord struct {
	Text      string `json:"text"`
	Pages     []int  `json:"pages"`
	CharStart int    `json:"char_start"`
	CharEnd   int    `json:"char_end"`
}

// BookMetadata is derived from the textbook filename convention
// TYPE_SUBJECT_PUBLISHER_GRADE.ext (e.g. SGK_TIN_CD_3.pdf).
type BookMetadata struct {
	BookType  string `json:"book_type"`
	Subject   string `json:"subject"`
	Publisher string `json:"publisher"`
	Grade     string `json:"grade"`
	FullName  string `json:"full_name"`
}

// TextbookInfo carries the caller-supplied book fields of a textbook
// upload. Non-empty fields take precedence over the values parsed
// from the filename, and ProductName overrides the product label
// attached to every chunk.
type TextbookInfo struct {
	BookName    string `json:"book_name" form:"book_name"`
	Publisher   string `json:"publisher" form:"publisher"`
	Grade       string `json:"grade,omitempty" form:"grade"`
	ProductName string `json:"product_name,omitempty" form:"product_name"`
}

// ChunkMetadata is the per-chunk bookkeeping handed to the vector
// store together with the chunk text and its embedding.
type ChunkMetadata struct {
	Filename     string         `json:"filename"`
	FileType     string         `json:"file_type"`
	FileHash     string         `json:"file_hash"`
	ChunkIndex   int            `json:"chunk_index"`
	TotalChunks  int            `json:"total_chunks"`
	ProductName  string         `json:"product_name,omitempty"`
	BookType     string         `json:"book_type,omitempty"`
	Subject      string         `json:"subject,omitempty"`
	Publisher    string         `json:"publisher,omitempty"`
	Grade        string         `json:"grade,omitempty"`
	BookFullName string         `json:"book_full_name,omitempty"`
	Pages        []int          `json:"pages,omitempty"`
	PageRange    string         `json:"page_range,omitempty"`
	CharStart    int            `json:"char_start"`
	CharEnd      int            `json:"char_end"`
	Extra        map[string]any `json:"extra,omitempty"`
	// RawMetadata keeps the caller-supplied metadata string verbatim
	// when it is not valid JSON.
	RawMetadata string `json:"raw_metadata,omitempty"`
}

// DocumentServiceConfig contains the read-only knobs of the
// document-to-chunk pipeline. It is built once from config and shared.
type DocumentServiceConfig struct {
	ChunkSize      int // maximum chunk size in bytes
	ChunkOverlap   int // overlap between consecutive chunks
	MinChunkLength int // chunks at or below this trimmed length are dropped
}

// ProcessResult is the outcome of processing a regular document.
type ProcessResult struct {
	DocumentID   string          `json:"document_id"`
	Chunks       []string        `json:"chunks"`
	Embeddings   [][]float32     `json:"-"`
	Metadata     []ChunkMetadata `json:"metadata"`
	OriginalText string          `json:"-"`
}

// TextbookResult extends ProcessResult with page-aware information for
// textbook PDFs.
type TextbookResult struct {
	ProcessResult
	PageInfo     []PageRecord  `json:"page_info"`
	ChunkRecords []ChunkRecord `json:"chunk_records"`
	Book         BookMetadata  `json:"book_metadata"`
}
