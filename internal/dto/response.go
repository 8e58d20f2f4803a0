package dto

import "github.com/cloudsquares/photoservice/internal/domain"

type ErrorResponse struct {
	Error string `json:"error"`
}

// UploadResponse lists one entry per uploaded file, in input order. Error
// is set only when the whole batch's downstream dispatch failed; stored
// items keep their ok entries in that case.
type UploadResponse struct {
	Results []domain.ItemResult `json:"results"`
	Error   string              `json:"error,omitempty"`
}

type DeletePhotosResponse struct {
	Status  string   `json:"status"`
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed"`
}

type PresignURLResponse struct {
	URL string `json:"url"`
}

type PresignURLsResponse struct {
	Results []domain.SignedLink `json:"results"`
}
