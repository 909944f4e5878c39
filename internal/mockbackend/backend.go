// Package mockbackend is an in-memory implementation of the loved-ones REST
// API. It lowercases record ids on create like the production backend, so
// clients exercise the same id adoption path in tests and local runs.
package mockbackend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/mycelian/rinku/client"
	"github.com/mycelian/rinku/devmode"
	"github.com/mycelian/rinku/internal/blobstore"
	"github.com/mycelian/rinku/internal/types"
)

const maxBlobSize = 20 << 20

type ctxKey struct{}

// Backend holds all state in memory. Safe for concurrent use.
type Backend struct {
	apiKey string
	log    zerolog.Logger

	mu      sync.Mutex
	records []types.RemoteRecord
	photos  map[string][]types.PhotoMetadata // by record id
	groups  map[string]string                // user id → group id
	blobs   *blobstore.Memory
}

// New returns an empty backend accepting apiKey (devmode.APIKey when empty).
func New(apiKey string, log zerolog.Logger) *Backend {
	if apiKey == "" {
		apiKey = devmode.APIKey
	}
	return &Backend{
		apiKey: apiKey,
		log:    log.With().Str("component", "mockbackend").Logger(),
		photos: make(map[string][]types.PhotoMetadata),
		groups: make(map[string]string),
		blobs:  blobstore.NewMemory(),
	}
}

// SetGroup puts userID in groupID; an empty groupID removes the membership.
func (b *Backend) SetGroup(userID, groupID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if groupID == "" {
		delete(b.groups, userID)
		return
	}
	b.groups[userID] = groupID
}

// Records returns a snapshot of every stored record.
func (b *Backend) Records() []types.RemoteRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]types.RemoteRecord(nil), b.records...)
}

// Handler returns the router serving the REST API.
func (b *Backend) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(recoverMiddleware(b.log))
	r.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		b.writeJSON(w, http.StatusOK, map[string]string{"status": "UP"})
	}).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(b.authenticate)
	api.HandleFunc("/loved-ones", b.listLovedOnes).Methods(http.MethodGet)
	api.HandleFunc("/loved-ones", b.createLovedOne).Methods(http.MethodPost)
	api.HandleFunc("/loved-ones/{id}", b.updateLovedOne).Methods(http.MethodPut)
	api.HandleFunc("/loved-ones/{id}", b.deleteLovedOne).Methods(http.MethodDelete)
	api.HandleFunc("/loved-ones/{id}/photos", b.listPhotos).Methods(http.MethodGet)
	api.HandleFunc("/loved-ones/{id}/photos", b.registerPhoto).Methods(http.MethodPost)
	api.PathPrefix("/storage/").HandlerFunc(b.putObject).Methods(http.MethodPut)
	api.PathPrefix("/storage/").HandlerFunc(b.getObject).Methods(http.MethodGet)
	api.HandleFunc("/groups/membership", b.groupMembership).Methods(http.MethodGet)
	return r
}

func (b *Backend) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+b.apiKey {
			b.writeError(w, http.StatusUnauthorized, "invalid api key")
			return
		}
		user := strings.TrimSpace(r.Header.Get(devmode.UserHeader))
		if user == "" {
			b.writeError(w, http.StatusUnauthorized, "missing "+devmode.UserHeader)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

func userFrom(r *http.Request) string {
	u, _ := r.Context().Value(ctxKey{}).(string)
	return u
}

// visibleLocked reports whether user may see rec: own records and records
// shared with the user's group.
func (b *Backend) visibleLocked(user string, rec types.RemoteRecord) bool {
	if rec.OwnerID == user {
		return true
	}
	g, ok := b.groups[user]
	return ok && rec.GroupID != nil && *rec.GroupID == g
}

func (b *Backend) findLocked(user, id string) int {
	for i, rec := range b.records {
		if types.SameID(rec.ID, id) && b.visibleLocked(user, rec) {
			return i
		}
	}
	return -1
}

func (b *Backend) listLovedOnes(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	b.mu.Lock()
	out := make([]types.RemoteRecord, 0, len(b.records))
	for _, rec := range b.records {
		if b.visibleLocked(user, rec) {
			out = append(out, rec)
		}
	}
	b.mu.Unlock()
	b.writeJSON(w, http.StatusOK, client.ListLovedOnesResponse{LovedOnes: out, Count: len(out)})
}

func (b *Backend) createLovedOne(w http.ResponseWriter, r *http.Request) {
	var in types.RemoteRecord
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		b.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(in.FullName) == "" || strings.TrimSpace(in.Relationship) == "" {
		b.writeError(w, http.StatusBadRequest, "full_name and relationship are required")
		return
	}
	in.ID = strings.ToLower(in.ID)
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	in.OwnerID = userFrom(r)
	now := time.Now().UTC()
	in.CreatedAt, in.UpdatedAt = now, now

	b.mu.Lock()
	for _, rec := range b.records {
		if rec.ID == in.ID {
			b.mu.Unlock()
			b.writeError(w, http.StatusConflict, "loved one already exists")
			return
		}
	}
	b.records = append(b.records, in)
	b.mu.Unlock()

	b.log.Debug().Str("id", in.ID).Str("owner", in.OwnerID).Msg("created loved one")
	b.writeJSON(w, http.StatusCreated, in)
}

func (b *Backend) updateLovedOne(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var in types.RemoteRecord
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		b.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	b.mu.Lock()
	i := b.findLocked(userFrom(r), id)
	if i < 0 {
		b.mu.Unlock()
		b.writeError(w, http.StatusNotFound, "loved one not found")
		return
	}
	cur := b.records[i]
	cur.FullName = in.FullName
	cur.FamiliarName = in.FamiliarName
	cur.Relationship = in.Relationship
	cur.MemoryPrompt = in.MemoryPrompt
	cur.Enrolled = in.Enrolled
	cur.GroupID = in.GroupID
	cur.UpdatedAt = time.Now().UTC()
	b.records[i] = cur
	b.mu.Unlock()

	b.writeJSON(w, http.StatusOK, cur)
}

func (b *Backend) deleteLovedOne(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b.mu.Lock()
	i := b.findLocked(userFrom(r), id)
	if i < 0 {
		b.mu.Unlock()
		b.writeError(w, http.StatusNotFound, "loved one not found")
		return
	}
	gone := b.records[i]
	b.records = append(b.records[:i], b.records[i+1:]...)
	delete(b.photos, gone.ID)
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) listPhotos(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b.mu.Lock()
	i := b.findLocked(userFrom(r), id)
	if i < 0 {
		b.mu.Unlock()
		b.writeError(w, http.StatusNotFound, "loved one not found")
		return
	}
	photos := append([]types.PhotoMetadata{}, b.photos[b.records[i].ID]...)
	b.mu.Unlock()
	b.writeJSON(w, http.StatusOK, client.ListPhotosResponse{Photos: photos, Count: len(photos)})
}

func (b *Backend) registerPhoto(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var in client.RegisterPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		b.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.FileName == "" || strings.ContainsAny(in.FileName, `/\`) {
		b.writeError(w, http.StatusBadRequest, "invalid fileName")
		return
	}

	b.mu.Lock()
	i := b.findLocked(userFrom(r), id)
	if i < 0 {
		b.mu.Unlock()
		b.writeError(w, http.StatusNotFound, "loved one not found")
		return
	}
	recID := b.records[i].ID
	if in.StoragePath == "" {
		in.StoragePath = path.Join(recID, in.FileName)
	}
	meta := types.PhotoMetadata{
		ID:          uuid.NewString(),
		LovedOneID:  recID,
		FileName:    in.FileName,
		StoragePath: in.StoragePath,
		CreatedAt:   time.Now().UTC(),
	}
	b.photos[recID] = append(b.photos[recID], meta)
	b.mu.Unlock()

	b.writeJSON(w, http.StatusCreated, meta)
}

func storagePath(r *http.Request) string {
	return strings.TrimPrefix(r.URL.Path, "/api/storage/")
}

func (b *Backend) putObject(w http.ResponseWriter, r *http.Request) {
	p := storagePath(r)
	if p == "" {
		b.writeError(w, http.StatusBadRequest, "missing storage path")
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBlobSize+1))
	if err != nil {
		b.writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	if len(data) > maxBlobSize {
		b.writeError(w, http.StatusRequestEntityTooLarge, "object too large")
		return
	}
	if err := b.blobs.Put(r.Context(), p, data); err != nil {
		b.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (b *Backend) getObject(w http.ResponseWriter, r *http.Request) {
	data, err := b.blobs.Get(r.Context(), storagePath(r))
	if errors.Is(err, blobstore.ErrNotFound) {
		b.writeError(w, http.StatusNotFound, "object not found")
		return
	}
	if err != nil {
		b.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (b *Backend) groupMembership(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	g, ok := b.groups[userFrom(r)]
	b.mu.Unlock()
	resp := client.GroupMembershipResponse{}
	if ok {
		resp.GroupID = &g
	}
	b.writeJSON(w, http.StatusOK, resp)
}
