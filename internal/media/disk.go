package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"ward27.org/internal/ids"
)

var _ Uploader = (*DiskUploader)(nil)

// DiskUploader stores assets on the local filesystem and returns URL paths
// under the given prefix. Suitable for single-node deployments; an object
// store implementation slots in behind the same interface.
type DiskUploader struct {
	dir       string
	urlPrefix string
}

func NewDiskUploader(dir, urlPrefix string) (*DiskUploader, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("media: upload directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskUploader{dir: dir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}, nil
}

func (u *DiskUploader) Upload(_ context.Context, name string, r io.Reader) (string, error) {
	stored := ids.New()
	if ext := extension(name); ext != "" {
		stored += "." + ext
	}
	f, err := os.Create(filepath.Join(u.dir, stored))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		_ = os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return u.urlPrefix + "/" + stored, nil
}

func (u *DiskUploader) Remove(_ context.Context, url string) error {
	name := path.Base(url)
	if name == "." || name == "/" || name == "" {
		return nil
	}
	err := os.Remove(filepath.Join(u.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
