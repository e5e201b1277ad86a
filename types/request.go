package types

type SearchRequest struct {
	Query    string `json:"query" form:"query"`
	Limit    int    `json:"limit" form:"limit"`
	Subject  string `json:"subject" form:"subject"`
	Grade    string `json:"grade" form:"grade"`
	FileHash string `json:"file_hash" form:"file_hash"`
}

type UploadDocumentRequest struct {
	// Metadata is an optional JSON object attached to every chunk of
	// the document. A non-JSON string is kept verbatim as raw metadata.
	Metadata string `form:"metadata"`
}
