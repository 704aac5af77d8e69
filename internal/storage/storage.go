// Package storage uploads product images to object storage and removes them
// when products are deleted.
package storage

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrNotConfigured is returned when an inline image is submitted but no
// object storage is configured to host it.
var ErrNotConfigured = errors.New("image storage not configured")

// ImageStore hosts product images.  Upload accepts a data URL
// (data:image/png;base64,...) and returns the public URL of the stored
// object.  Remove deletes the object behind a URL previously returned by
// Upload; URLs it does not own are ignored.
type ImageStore interface {
	Upload(ctx context.Context, dataURL string) (string, error)
	Remove(ctx context.Context, url string) error
}

// Nop is used when no object storage is configured.
type Nop struct{}

func (Nop) Upload(context.Context, string) (string, error) { return "", ErrNotConfigured }
func (Nop) Remove(context.Context, string) error           { return nil }

// IsRemoteURL reports whether image already points at an http(s) resource
// and therefore needs no upload.
func IsRemoteURL(image string) bool {
	return strings.HasPrefix(image, "http://") || strings.HasPrefix(image, "https://")
}

// decodedImage is the payload of a base64 data URL.
type decodedImage struct {
	ContentType string
	Ext         string
	Data        []byte
}

var extByType = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// decodeDataURL parses data:<type>;base64,<payload>.  Only image types are
// accepted.
func decodeDataURL(s string) (decodedImage, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return decodedImage{}, errors.New("image is not a data URL")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return decodedImage{}, errors.New("data URL has no payload")
	}
	ctype, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return decodedImage{}, errors.New("data URL is not base64 encoded")
	}
	ext, ok := extByType[strings.ToLower(ctype)]
	if !ok {
		return decodedImage{}, fmt.Errorf("unsupported image type %q", ctype)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return decodedImage{}, fmt.Errorf("decode image: %w", err)
	}
	if len(data) == 0 {
		return decodedImage{}, errors.New("image is empty")
	}
	return decodedImage{ContentType: strings.ToLower(ctype), Ext: ext, Data: data}, nil
}
