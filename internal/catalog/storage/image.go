// Package storage validates uploaded product images and keeps them on disk or in MinIO.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const MaxImageSize = 5 << 20

var (
	ErrInvalidType = errors.New("invalid image type")
	ErrTooLarge    = errors.New("image too large")
)

var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

type ImageStore interface {
	// Put stores data under name and returns its public URL.
	Put(ctx context.Context, name, contentType string, data []byte) (string, error)
	// Remove deletes the object behind url. URLs the store does not own are ignored.
	Remove(ctx context.Context, url string) error
}

type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// ReadImage reads at most MaxImageSize bytes and checks the content type by sniffing.
func ReadImage(r io.Reader) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, ErrTooLarge
	}

	mt := mimetype.Detect(data)
	ext, ok := allowedTypes[mt.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, mt.String())
	}

	return &Image{
		Name:        "product_" + uuid.NewString() + "." + ext,
		ContentType: mt.String(),
		Data:        data,
	}, nil
}
