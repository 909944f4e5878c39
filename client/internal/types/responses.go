package types

import domain "github.com/mycelian/rinku/internal/types"

// ------------------------------
// Response Types
// ------------------------------

// ListLovedOnesResponse wraps the list endpoint response.
type ListLovedOnesResponse struct {
	LovedOnes []domain.RemoteRecord `json:"lovedOnes"`
	Count     int                   `json:"count"`
}

// ListPhotosResponse wraps the photo metadata listing.
type ListPhotosResponse struct {
	Photos []domain.PhotoMetadata `json:"photos"`
	Count  int                    `json:"count"`
}

// GroupMembershipResponse reports the group of the calling user, if any.
type GroupMembershipResponse struct {
	GroupID *string `json:"groupId"`
}
