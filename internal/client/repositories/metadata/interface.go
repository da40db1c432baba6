// Package metadata is the local key/value store backing every piece of
// client state that must survive a restart: the access-token cookie, the
// cookie jar and the OTP flow checkpoint.
package metadata

import (
	"context"
)

// Repository is a byte-valued key/value store. Get returns (nil, nil)
// for a missing key; Delete of a missing key is not an error.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
