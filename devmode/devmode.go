// Package devmode provides shared configuration for development mode across
// the sync client and the mock backend.
package devmode

// APIKey is the shared development mode API key accepted by the mock backend.
// This key is intentionally obvious and should never be used in production.
const APIKey = "LOCAL_DEV_MODE_NOT_FOR_PRODUCTION"

// UserHeader carries the signed-in user id on every backend request.
const UserHeader = "X-Rinku-User"
