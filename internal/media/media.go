// Package media tracks uploaded resource metadata. The actual storage
// provider sits behind the Uploader interface and is out of scope here.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	ErrNotFound     = errors.New("media: not found")
	ErrInvalidInput = errors.New("media: invalid input")
)

// Kind classifies a media resource.
type Kind string

const (
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindDocument Kind = "document"
)

// Resource is the persisted metadata row for an uploaded asset.
type Resource struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Extension string    `json:"extension"`
	Kind      Kind      `json:"kind"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Uploader is the external storage provider boundary.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader) (url string, err error)
	Remove(ctx context.Context, url string) error
}

// Store persists resource metadata.
type Store interface {
	Create(ctx context.Context, res *Resource) error
	Find(ctx context.Context, id string) (*Resource, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*Resource, error)
}

// Service couples metadata persistence with the upload provider.
type Service struct {
	store    Store
	uploader Uploader
}

func NewService(store Store, uploader Uploader) (*Service, error) {
	if store == nil {
		return nil, errors.New("media: store is required")
	}
	if uploader == nil {
		return nil, errors.New("media: uploader is required")
	}
	return &Service{store: store, uploader: uploader}, nil
}

// Save streams the asset to the provider and records its metadata.
func (s *Service) Save(ctx context.Context, ownerID, name string, kind Kind, r io.Reader) (*Resource, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidInput)
	}
	url, err := s.uploader.Upload(ctx, name, r)
	if err != nil {
		return nil, err
	}
	res := &Resource{
		OwnerID:   ownerID,
		Name:      name,
		Extension: extension(name),
		Kind:      kind,
		URL:       url,
	}
	if err := s.store.Create(ctx, res); err != nil {
		// Best effort cleanup; the metadata row is the source of truth.
		_ = s.uploader.Remove(ctx, url)
		return nil, err
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Resource, error) {
	return s.store.Find(ctx, id)
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]*Resource, error) {
	return s.store.ListByOwner(ctx, ownerID)
}

func extension(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}
