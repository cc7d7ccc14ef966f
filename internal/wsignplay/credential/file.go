package credential

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	werrors "github.com/wrale/wrale-signage-player/internal/wsignplay/errors"
)

// FileStore keeps the credential in a YAML file readable only by its owner
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the stored credential
func (s *FileStore) Load(ctx context.Context) (*Credential, error) {
	const op = "FileStore.Load"

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, werrors.NewError("NOT_FOUND", "no credential stored", op, werrors.ErrNotFound)
	}
	if err != nil {
		return nil, werrors.NewError("INTERNAL", "failed to read credential", op, err)
	}

	var cred Credential
	if err := yaml.Unmarshal(data, &cred); err != nil {
		return nil, werrors.NewError("INVALID_INPUT", "corrupt credential file", op, werrors.ErrInvalidInput)
	}
	if !cred.Valid() {
		return nil, werrors.NewError("NOT_FOUND", "credential file holds no token", op, werrors.ErrNotFound)
	}
	return &cred, nil
}

// Save writes the credential atomically
func (s *FileStore) Save(ctx context.Context, cred *Credential) error {
	const op = "FileStore.Save"

	if !cred.Valid() {
		return werrors.NewError("INVALID_INPUT", "credential token is empty", op, werrors.ErrInvalidInput)
	}

	data, err := yaml.Marshal(cred)
	if err != nil {
		return werrors.NewError("INTERNAL", "failed to encode credential", op, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return werrors.NewError("INTERNAL", "failed to create credential directory", op, err)
	}

	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return werrors.NewError("INTERNAL", "failed to create temp file", op, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return werrors.NewError("INTERNAL", "failed to write credential", op, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return werrors.NewError("INTERNAL", "failed to set credential permissions", op, err)
	}
	if err := tmp.Close(); err != nil {
		return werrors.NewError("INTERNAL", "failed to close credential file", op, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return werrors.NewError("INTERNAL", fmt.Sprintf("failed to move credential into %s", s.path), op, err)
	}
	return nil
}

// Clear removes the credential. Clearing an empty store succeeds.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return werrors.NewError("INTERNAL", "failed to remove credential", "FileStore.Clear", err)
	}
	return nil
}
