package domain

// UploadRequest is the JSON body of a media upload.
type UploadRequest struct {
	FileName string `json:"fileName" validate:"required,max=512"`
	FileType string `json:"fileType"`
	FileData string `json:"fileData" validate:"required"`
}

// UploadResponse describes a stored blob.
type UploadResponse struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}
