package types

import "context"

type identityKey struct{}

// WithIdentity returns a context carrying the identity a remote call is
// made on behalf of.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	if id == nil {
		return ctx
	}
	cp := *id
	return context.WithValue(ctx, identityKey{}, &cp)
}

// IdentityFrom returns the identity stored by WithIdentity, or nil.
func IdentityFrom(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}
