package client

import (
	"github.com/mycelian/rinku/client/internal/types"
	domain "github.com/mycelian/rinku/internal/types"
)

// Public type aliases so SDK consumers can import only the client package.
type (
	RemoteRecord  = domain.RemoteRecord
	PhotoMetadata = domain.PhotoMetadata

	RegisterPhotoRequest    = types.RegisterPhotoRequest
	ListLovedOnesResponse   = types.ListLovedOnesResponse
	ListPhotosResponse      = types.ListPhotosResponse
	GroupMembershipResponse = types.GroupMembershipResponse
)
