// Package cache persists one snapshot of the record list per identity
// partition. Snapshots are opaque JSON blobs overwritten on every save.
package cache

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/mycelian/rinku/internal/types"
)

// DefaultPrefix is prepended to every partition key.
const DefaultPrefix = "lovedones_"

// GuestPartition is the suffix used when nobody is signed in.
const GuestPartition = "guest"

// PartitionKey derives the storage key for an identity.
func PartitionKey(prefix string, id *types.Identity) string {
	if id == nil || id.ID == "" {
		return prefix + GuestPartition
	}
	return prefix + id.ID
}

func encode(records []types.LovedOne) ([]byte, error) {
	if records == nil {
		records = []types.LovedOne{}
	}
	return json.Marshal(records)
}

// decode never fails: a corrupt snapshot is logged and treated as empty.
func decode(log zerolog.Logger, key string, payload []byte) []types.LovedOne {
	if len(payload) == 0 {
		return []types.LovedOne{}
	}
	var out []types.LovedOne
	if err := json.Unmarshal(payload, &out); err != nil {
		log.Warn().Err(err).Str("partition", key).Msg("discarding undecodable cache snapshot")
		return []types.LovedOne{}
	}
	if out == nil {
		return []types.LovedOne{}
	}
	for i := range out {
		if out[i].PhotoFileNames == nil {
			out[i].PhotoFileNames = []string{}
		}
	}
	return out
}
