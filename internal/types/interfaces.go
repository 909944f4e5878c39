package types

import "context"

// ------------------------------
// Collaborator contracts
// ------------------------------

// Gateway is the remote backend: record CRUD, photo metadata and photo bytes.
// Every call may block on the network and may fail.
type Gateway interface {
	FetchRecords(ctx context.Context) ([]RemoteRecord, error)
	CreateRecord(ctx context.Context, rec RemoteRecord) (*RemoteRecord, error)
	UpdateRecord(ctx context.Context, rec RemoteRecord) error
	DeleteRecord(ctx context.Context, id string) error
	FetchPhotoMetadata(ctx context.Context, recordID string) ([]PhotoMetadata, error)
	DownloadPhoto(ctx context.Context, storagePath string) ([]byte, error)
	// UploadPhoto stores data for recordID under fileName (the remote name,
	// without the local owner prefix) and registers its metadata.
	UploadPhoto(ctx context.Context, recordID, fileName string, data []byte) (*PhotoMetadata, error)
}

// AssetStore persists photo bytes locally under a file name. Implementations
// must be safe for concurrent use.
type AssetStore interface {
	Exists(fileName string) bool
	// Save writes data and returns the final file name. An empty fileName
	// asks the store to generate one prefixed with ownerID.
	Save(data []byte, ownerID, fileName string) (string, error)
	Load(fileName string) ([]byte, error)
	Delete(fileName string) error
	DeleteAll(ownerID string) error
}

// RecordCache is the durable per-partition snapshot of the record list.
// Load never fails: missing or undecodable data yields an empty list.
type RecordCache interface {
	Load(ctx context.Context, partitionKey string) []LovedOne
	Save(ctx context.Context, partitionKey string, records []LovedOne) error
}

// IdentityProvider asserts the current user and notifies sign-in/out.
type IdentityProvider interface {
	Current() *Identity
	// Subscribe returns a channel of auth transitions and a cancel func.
	Subscribe() (<-chan AuthEvent, func())
}

// GroupMembership supplies the sharing group of the current user, if any.
type GroupMembership interface {
	CurrentGroupID() *string
	Subscribe() (<-chan GroupEvent, func())
}
