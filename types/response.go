package types

type DataResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type UploadResponse struct {
	JobID        string `json:"job_id"`
	OriginalName string `json:"original_name,omitempty"`
}

type ExtractResponse struct {
	Filename  string       `json:"filename"`
	FileType  string       `json:"file_type"`
	Text      string       `json:"text"`
	PageInfo  []PageRecord `json:"page_info,omitempty"`
	TotalPage int          `json:"total_pages,omitempty"`
}

type DocumentMetadataResponse struct {
	DocumentID  string       `json:"document_id"`
	Filename    string       `json:"filename"`
	FileType    string       `json:"file_type"`
	FileHash    string       `json:"file_hash"`
	TotalChunks int          `json:"total_chunks"`
	Book        BookMetadata `json:"book_metadata,omitempty"`
}

type SearchResult struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
	Score    float32       `json:"score"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
}
