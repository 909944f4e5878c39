// Package types holds the domain model shared by the sync engine packages:
// loved-one records, photo metadata, identities and the contracts of the
// engine's external collaborators.
package types

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// LovedOne is the unit of synchronization: one person profile plus the
// local file names of its photos.
type LovedOne struct {
	ID             string   `json:"id"`
	FullName       string   `json:"fullName"`
	FamiliarName   *string  `json:"familiarName,omitempty"`
	Relationship   string   `json:"relationship"`
	MemoryPrompt   *string  `json:"memoryPrompt,omitempty"`
	Enrolled       bool     `json:"enrolled"`
	PhotoFileNames []string `json:"photoFileNames"`
	GroupID        *string  `json:"groupId,omitempty"`
}

// PhotoMetadata describes a photo known to the remote side.
type PhotoMetadata struct {
	ID          string    `json:"id,omitempty"`
	LovedOneID  string    `json:"lovedOneId"`
	FileName    string    `json:"fileName"`
	StoragePath string    `json:"storagePath"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Identity is the signed-in user as asserted by the identity provider.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// AuthEvent is emitted on every sign-in / sign-out transition.
type AuthEvent struct {
	SignedIn bool
	Identity *Identity
}

// GroupEvent is emitted when the current group membership changes.
type GroupEvent struct {
	GroupID *string
}

// IDKey folds an identifier for case-insensitive comparison. The backend
// lowercases ids while locally generated ids may be mixed case.
func IDKey(id string) string {
	return cases.Fold().String(id)
}

// SameID reports whether a and b identify the same record.
func SameID(a, b string) bool {
	return IDKey(a) == IDKey(b)
}

// OptionalString returns nil for the empty string and a pointer otherwise.
func OptionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Normalize coerces empty optional fields to absent and trims the
// required ones. It returns a copy; the receiver is not modified.
func (l LovedOne) Normalize() LovedOne {
	out := l.Clone()
	out.FullName = strings.TrimSpace(out.FullName)
	out.Relationship = strings.TrimSpace(out.Relationship)
	out.FamiliarName = OptionalString(Deref(out.FamiliarName))
	out.MemoryPrompt = OptionalString(Deref(out.MemoryPrompt))
	out.GroupID = OptionalString(Deref(out.GroupID))
	return out
}

// Clone returns a deep copy so callers never share slices or pointers with
// the store's internal state.
func (l LovedOne) Clone() LovedOne {
	out := l
	out.PhotoFileNames = slices.Clone(l.PhotoFileNames)
	if l.FamiliarName != nil {
		v := *l.FamiliarName
		out.FamiliarName = &v
	}
	if l.MemoryPrompt != nil {
		v := *l.MemoryPrompt
		out.MemoryPrompt = &v
	}
	if l.GroupID != nil {
		v := *l.GroupID
		out.GroupID = &v
	}
	return out
}

// CloneAll deep-copies a record list.
func CloneAll(in []LovedOne) []LovedOne {
	if in == nil {
		return nil
	}
	out := make([]LovedOne, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}

// IndexOf returns the position of the record matching id, or -1.
func IndexOf(list []LovedOne, id string) int {
	key := IDKey(id)
	for i := range list {
		if IDKey(list[i].ID) == key {
			return i
		}
	}
	return -1
}
