package types

import "time"

// RemoteRecord is the backend's representation of a loved one. It has no
// notion of local photo file names.
type RemoteRecord struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id,omitempty"`
	FullName     string    `json:"full_name"`
	FamiliarName *string   `json:"familiar_name,omitempty"`
	Relationship string    `json:"relationship"`
	MemoryPrompt *string   `json:"memory_prompt,omitempty"`
	Enrolled     bool      `json:"enrolled"`
	GroupID      *string   `json:"group_id,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// ToRemote converts a local record into the wire form owned by ownerID.
func (l LovedOne) ToRemote(ownerID string) RemoteRecord {
	n := l.Normalize()
	return RemoteRecord{
		ID:           n.ID,
		OwnerID:      ownerID,
		FullName:     n.FullName,
		FamiliarName: n.FamiliarName,
		Relationship: n.Relationship,
		MemoryPrompt: n.MemoryPrompt,
		Enrolled:     n.Enrolled,
		GroupID:      n.GroupID,
	}
}

// Materialize builds a local record from remote fields and a reconciled
// photo list.
func (r RemoteRecord) Materialize(photoFileNames []string) LovedOne {
	l := LovedOne{
		ID:             r.ID,
		FullName:       r.FullName,
		FamiliarName:   r.FamiliarName,
		Relationship:   r.Relationship,
		MemoryPrompt:   r.MemoryPrompt,
		Enrolled:       r.Enrolled,
		PhotoFileNames: photoFileNames,
		GroupID:        r.GroupID,
	}
	l = l.Normalize()
	if l.PhotoFileNames == nil {
		l.PhotoFileNames = []string{}
	}
	return l
}
