package models

// Document is a single stored record: the submitted or extracted text keyed
// by the identifier generated at ingestion time.
type Document struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// SearchHit is one ranked result of a similarity search. Higher Score means
// more similar.
type SearchHit struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// FileStatus records the outcome of ingesting one file of a folder batch.
type FileStatus struct {
	File  string `json:"file"`
	DocID string `json:"doc_id,omitempty"`
	Error string `json:"error,omitempty"`
}

// IndexFolderReport summarises a folder batch.
type IndexFolderReport struct {
	Attempted int          `json:"attempted"`
	Indexed   int          `json:"indexed"`
	Failed    int          `json:"failed"`
	Files     []FileStatus `json:"files"`
}
