// Package store persists the portal's JSON documents.
//
// Every document is written inside an envelope carrying a revision counter:
//
//	{"revision": 3, "data": [...]}
//
// Documents written by older deployments hold the bare value and read as
// revision 0. A missing or unparsable document reads as the kind's default.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/MrSnakeDoc/portal/internal/domain"
	"github.com/MrSnakeDoc/portal/internal/logger"
)

// Kind names one persisted document.
type Kind string

const (
	KindAdmin     Kind = "admin"
	KindCustom    Kind = "custom-services"
	KindOverrides Kind = "status-overrides"
	KindHidden    Kind = "hidden"
	KindAdminOnly Kind = "admin-only"
)

// Kinds lists every document kind.
var Kinds = []Kind{KindAdmin, KindCustom, KindOverrides, KindHidden, KindAdminOnly}

// Filename returns the on-disk name of the document.
func (k Kind) Filename() string { return string(k) + ".json" }

// Backend moves raw document bytes to and from durable storage.
type Backend interface {
	// Load returns exists=false when the document has never been written.
	Load(ctx context.Context, kind Kind) (data []byte, exists bool, err error)
	// Save replaces the whole document.
	Save(ctx context.Context, kind Kind, data []byte) error
	// Ping reports whether the backend is usable.
	Ping(ctx context.Context) error
	// Name identifies the backend in logs.
	Name() string
}

// WriteObserver is notified after every document write.
type WriteObserver interface {
	StoreWrite(kind string, err error)
}

// AdminCredential is the content of admin.json.
type AdminCredential struct {
	PasswordHash string `json:"passwordHash"`
}

// Store reads and writes typed documents through a Backend.
type Store struct {
	backend  Backend
	log      logger.Logger
	observer WriteObserver
}

// New creates a store. observer may be nil.
func New(backend Backend, log logger.Logger, observer WriteObserver) *Store {
	return &Store{backend: backend, log: log, observer: observer}
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error { return s.backend.Ping(ctx) }

type envelope struct {
	Revision uint64          `json:"revision"`
	Data     json.RawMessage `json:"data"`
}

// decode splits raw bytes into payload and revision. Bare legacy values are
// returned unchanged with revision 0.
func decode(raw []byte) (json.RawMessage, uint64) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err == nil && len(probe) == 2 {
		rev, hasRev := probe["revision"]
		data, hasData := probe["data"]
		if hasRev && hasData {
			var n uint64
			if err := json.Unmarshal(rev, &n); err == nil {
				return data, n
			}
		}
	}
	return raw, 0
}

func read[T any](ctx context.Context, s *Store, kind Kind, def func() T) (T, uint64, error) {
	raw, exists, err := s.backend.Load(ctx, kind)
	if err != nil {
		var zero T
		return zero, 0, fmt.Errorf("failed to read %s: %w", kind, err)
	}
	if !exists || len(bytes.TrimSpace(raw)) == 0 {
		return def(), 0, nil
	}

	payload, rev := decode(raw)
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		s.log.Warn("malformed document, using default",
			logger.String("kind", string(kind)),
			logger.String("backend", s.backend.Name()),
			logger.Error(err))
		return def(), 0, nil
	}
	return v, rev, nil
}

func write[T any](ctx context.Context, s *Store, kind Kind, v T, rev uint64) (uint64, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return rev, fmt.Errorf("failed to marshal %s: %w", kind, err)
	}
	next := rev + 1
	data, err := json.MarshalIndent(envelope{Revision: next, Data: payload}, "", "  ")
	if err != nil {
		return rev, fmt.Errorf("failed to marshal %s envelope: %w", kind, err)
	}

	err = s.backend.Save(ctx, kind, append(data, '\n'))
	if s.observer != nil {
		s.observer.StoreWrite(string(kind), err)
	}
	if err != nil {
		return rev, fmt.Errorf("failed to write %s: %w", kind, err)
	}
	return next, nil
}

// CustomServices returns the custom service list.
func (s *Store) CustomServices(ctx context.Context) ([]domain.CustomService, uint64, error) {
	v, rev, err := read(ctx, s, KindCustom, func() []domain.CustomService { return []domain.CustomService{} })
	if v == nil {
		v = []domain.CustomService{}
	}
	return v, rev, err
}

// PutCustomServices replaces the custom service list read at rev.
func (s *Store) PutCustomServices(ctx context.Context, v []domain.CustomService, rev uint64) (uint64, error) {
	return write(ctx, s, KindCustom, v, rev)
}

// Overrides returns the status override map.
func (s *Store) Overrides(ctx context.Context) (domain.Overrides, uint64, error) {
	v, rev, err := read(ctx, s, KindOverrides, func() domain.Overrides { return domain.Overrides{} })
	if v == nil {
		v = domain.Overrides{}
	}
	return v, rev, err
}

// PutOverrides replaces the status override map read at rev.
func (s *Store) PutOverrides(ctx context.Context, v domain.Overrides, rev uint64) (uint64, error) {
	return write(ctx, s, KindOverrides, v, rev)
}

// Hidden returns the ids of hidden built-in services.
func (s *Store) Hidden(ctx context.Context) ([]string, uint64, error) {
	return s.idSet(ctx, KindHidden)
}

// PutHidden replaces the hidden set read at rev.
func (s *Store) PutHidden(ctx context.Context, ids []string, rev uint64) (uint64, error) {
	return write(ctx, s, KindHidden, domain.Dedupe(ids), rev)
}

// AdminOnly returns the ids visible only to admins.
func (s *Store) AdminOnly(ctx context.Context) ([]string, uint64, error) {
	return s.idSet(ctx, KindAdminOnly)
}

// PutAdminOnly replaces the admin-only set read at rev.
func (s *Store) PutAdminOnly(ctx context.Context, ids []string, rev uint64) (uint64, error) {
	return write(ctx, s, KindAdminOnly, domain.Dedupe(ids), rev)
}

func (s *Store) idSet(ctx context.Context, kind Kind) ([]string, uint64, error) {
	v, rev, err := read(ctx, s, kind, func() []string { return []string{} })
	if err != nil {
		return nil, 0, err
	}
	return domain.Dedupe(v), rev, nil
}

// Credential returns the stored admin credential. A zero PasswordHash means
// no usable credential exists.
func (s *Store) Credential(ctx context.Context) (AdminCredential, uint64, error) {
	return read(ctx, s, KindAdmin, func() AdminCredential { return AdminCredential{} })
}

// PutCredential replaces the admin credential read at rev.
func (s *Store) PutCredential(ctx context.Context, c AdminCredential, rev uint64) (uint64, error) {
	return write(ctx, s, KindAdmin, c, rev)
}
