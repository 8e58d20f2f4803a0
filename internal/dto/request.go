package dto

// DeletePhotosRequest is the JSON body of DELETE /delete-photos. FileURLs
// carries bucket keys, matching what the upload response returned for
// private objects.
type DeletePhotosRequest struct {
	EntityType string   `json:"entity_type"`
	EntityID   string   `json:"entity_id"`
	FileURLs   []string `json:"file_urls"`
}

// PresignURLsRequest is the JSON body of POST /presigned-urls.
type PresignURLsRequest struct {
	Keys []string `json:"keys"`
}
