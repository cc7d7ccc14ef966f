// Package redis stores the device credential in Redis
package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/wrale/wrale-signage-player/internal/wsignplay/credential"
	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
)

// DefaultKey is used when no key is configured
const DefaultKey = "wsignplay:credential"

// Store implements credential storage using Redis
type Store struct {
	client redis.Cmdable
	key    string
}

// NewStore creates a new Redis-backed credential store
func NewStore(client redis.Cmdable, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Load reads the stored credential
func (s *Store) Load(ctx context.Context) (*credential.Credential, error) {
	const op = "RedisStore.Load"

	val, err := s.client.Get(ctx, s.key).Bytes()
	if err == redis.Nil {
		return nil, werrors.NewError("NOT_FOUND", "no credential stored", op, werrors.ErrNotFound)
	}
	if err != nil {
		return nil, werrors.NewError("INTERNAL", "failed to read credential", op, err)
	}

	var cred credential.Credential
	if err := json.Unmarshal(val, &cred); err != nil || !cred.Valid() {
		return nil, werrors.NewError("INVALID_INPUT", "corrupt credential record", op, werrors.ErrInvalidInput)
	}
	return &cred, nil
}

// Save stores the credential without expiry
func (s *Store) Save(ctx context.Context, cred *credential.Credential) error {
	const op = "RedisStore.Save"

	if !cred.Valid() {
		return werrors.NewError("INVALID_INPUT", "credential token is empty", op, werrors.ErrInvalidInput)
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return werrors.NewError("INTERNAL", "failed to encode credential", op, err)
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return werrors.NewError("INTERNAL", "failed to write credential", op, err)
	}
	return nil
}

// Clear removes the credential
func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return werrors.NewError("INTERNAL", "failed to remove credential", "RedisStore.Clear", err)
	}
	return nil
}
