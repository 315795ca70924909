// Package blob stores uploaded files and hands back a URL for viewing them.
package blob

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

var ErrEmptyFile = errors.New("file is empty")

type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

type Object struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Store puts a file under id in bucket. An empty bucket means the store's
// default, an empty id lets the store pick one.
type Store interface {
	Store(ctx context.Context, bucket, id string, f File) (Object, error)
}

// objectKey keeps the upload's extension so viewers get a sensible type.
func objectKey(id, name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" || strings.HasSuffix(id, ext) {
		return id
	}
	return id + ext
}
