package models

type AddDocumentResponse struct {
	DocID string `json:"doc_id"`
}

type GetDocumentResponse struct {
	Content string `json:"content"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// IndexFolderResponse is returned by POST /index-folder/. The per-file
// entries let callers see which PDFs failed without reading server logs.
type IndexFolderResponse struct {
	Message string `json:"message"`
	IndexFolderReport
}
