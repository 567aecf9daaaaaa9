package models

type AddDocumentRequest struct {
	Content string `json:"content"`
}

type SearchRequest struct {
	Query string `json:"query"`
}

type IndexFolderRequest struct {
	FolderPath string `json:"folder_path" form:"folder_path"`
}
