package types

// ------------------------------
// Request Types
// ------------------------------

// RegisterPhotoRequest records an uploaded photo against a loved one.
type RegisterPhotoRequest struct {
	FileName    string `json:"fileName"`
	StoragePath string `json:"storagePath"`
}
