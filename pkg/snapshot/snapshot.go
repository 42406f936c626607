// Package snapshot saves and restores calculator state in a key-value store.
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/iwvelando/property-costs/pkg/constants"
	"github.com/iwvelando/property-costs/pkg/costs"
	"go.uber.org/zap"
)

// Version is the snapshot format written by Encode.
const Version = 1

var (
	// ErrNotFound is returned when a key has no snapshot.
	ErrNotFound = errors.New("snapshot not found")

	// ErrUnsupportedVersion is returned for snapshots written by a newer format.
	ErrUnsupportedVersion = errors.New("unsupported snapshot version")

	// ErrInvalidPropertyID is returned for listing identifiers that are empty
	// or would land in the standalone key space.
	ErrInvalidPropertyID = errors.New("invalid property identifier")
)

// Store is the key-value contract snapshot backends implement.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

type document struct {
	Version int             `json:"version"`
	State   json.RawMessage `json:"state"`
}

// Key namespaces a property identifier, e.g. "calculator_1234".
func Key(propertyID string) string {
	return constants.SnapshotKeyPrefix + strings.TrimSpace(propertyID)
}

// PropertyKey validates a listing identifier and namespaces it like Key.
// Identifiers whose key would start with the standalone prefix are
// rejected so listings and standalone calculators never share a key.
func PropertyKey(propertyID string) (string, error) {
	key := Key(propertyID)
	if key == constants.SnapshotKeyPrefix {
		return "", fmt.Errorf("%w: empty", ErrInvalidPropertyID)
	}
	if strings.HasPrefix(key, constants.StandaloneKeyPrefix) {
		return "", fmt.Errorf("%w: %q is reserved", ErrInvalidPropertyID, strings.TrimSpace(propertyID))
	}
	return key, nil
}

// StandaloneKey returns a fresh key for a calculator not tied to a listing.
func StandaloneKey() string {
	return constants.StandaloneKeyPrefix + uuid.NewString()
}

// Encode writes the state as a versioned JSON document. A nil section map
// is written as an empty object, so Decode(Encode(s)) returns s.Normalize()
// rather than s itself for states that have not been normalised.
func Encode(state costs.State) ([]byte, error) {
	s := state.Clone()
	if s.SectionsExpanded == nil {
		s.SectionsExpanded = make(map[string]bool)
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode calculator state: %w", err)
	}
	return json.Marshal(document{Version: Version, State: raw})
}

// Decode reads a document written by Encode. Fields missing from the
// document take their defaults from costs.DefaultState and unknown fields
// are ignored.
func Decode(data []byte) (costs.State, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return costs.State{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if doc.Version > Version || doc.Version < 0 {
		return costs.State{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}

	state := costs.DefaultState()
	trimmed := bytes.TrimSpace(doc.State)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return state, nil
	}

	// Decode sections separately so a stored map replaces the defaults
	// instead of being merged into them.
	var sections struct {
		SectionsExpanded map[string]bool `json:"sectionsExpanded"`
	}
	if err := json.Unmarshal(trimmed, &sections); err != nil {
		return costs.State{}, fmt.Errorf("failed to decode snapshot sections: %w", err)
	}
	if err := json.Unmarshal(trimmed, &state); err != nil {
		return costs.State{}, fmt.Errorf("failed to decode snapshot state: %w", err)
	}
	if sections.SectionsExpanded != nil {
		state.SectionsExpanded = sections.SectionsExpanded
	} else {
		state.SectionsExpanded = costs.DefaultSections()
	}
	return state.Normalize(), nil
}

// Adapter loads and saves calculator state through a Store.
type Adapter struct {
	store  Store
	logger *zap.Logger
}

// NewAdapter wraps store. A nil logger discards log output.
func NewAdapter(store Store, logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{store: store, logger: logger}
}

// Load returns the state saved under key, or ErrNotFound.
func (a *Adapter) Load(ctx context.Context, key string) (costs.State, error) {
	data, err := a.store.Get(ctx, key)
	if err != nil {
		return costs.State{}, err
	}
	state, err := Decode(data)
	if err != nil {
		return costs.State{}, fmt.Errorf("snapshot %s: %w", key, err)
	}
	a.logger.Debug("loaded calculator snapshot",
		zap.String("op", "snapshot.Load"),
		zap.String("key", key),
	)
	return state, nil
}

// Save stores state under key.
func (a *Adapter) Save(ctx context.Context, key string, state costs.State) error {
	data, err := Encode(state)
	if err != nil {
		return err
	}
	if err := a.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", key, err)
	}
	return nil
}
