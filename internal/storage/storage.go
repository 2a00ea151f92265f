// Package storage keeps listing images in an object store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrObjectExists is returned by PutObject when the key is already taken.
var ErrObjectExists = errors.New("object already exists")

// ErrObjectNotFound is returned by GetObject for unknown keys.
var ErrObjectNotFound = errors.New("object not found")

// IImageStorage is the object store used for listing images. Keys are
// slash separated paths such as listings/42/image_01.jpg.
type IImageStorage interface {
	// PutObject stores body under key and never overwrites an existing object.
	PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	GetObject(ctx context.Context, key string) (io.ReadCloser, string, error)
	PublicURL(key string) string
	ListObjects(ctx context.Context, prefix string) ([]string, error)
	DeleteObjects(ctx context.Context, keys []string) error
}

// ListingImageKey is the key of the n-th (1-based) image of a listing.
func ListingImageKey(listingID int64, n int, filename string) string {
	return fmt.Sprintf("%s/image_%02d.%s", ListingPrefix(listingID), n, ImageExtension(filename))
}

// ListingThumbKey is the key of the thumbnail of the n-th image of a listing.
func ListingThumbKey(listingID int64, n int) string {
	return fmt.Sprintf("%s/thumb_%02d.jpg", ListingPrefix(listingID), n)
}

// ListingPrefix is the namespace holding every object of a listing.
func ListingPrefix(listingID int64) string {
	return fmt.Sprintf("listings/%d", listingID)
}

// ImageExtension is the lower-cased extension of filename, jpg when it has none.
func ImageExtension(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if ext == "" {
		return "jpg"
	}
	return ext
}
