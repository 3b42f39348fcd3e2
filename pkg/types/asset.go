package types

import "time"

// ImageKind identifies one of the accepted image formats.
type ImageKind string

const (
	KindJPEG ImageKind = "jpeg"
	KindPNG  ImageKind = "png"
	KindGIF  ImageKind = "gif"
)

// Extension returns the filesystem-safe extension for the kind.
func (k ImageKind) Extension() string {
	switch k {
	case KindJPEG:
		return "jpg"
	case KindPNG:
		return "png"
	case KindGIF:
		return "gif"
	}
	return ""
}

// MIME returns the canonical content type for the kind.
func (k ImageKind) MIME() string {
	switch k {
	case KindJPEG:
		return "image/jpeg"
	case KindPNG:
		return "image/png"
	case KindGIF:
		return "image/gif"
	}
	return ""
}

// ImageAsset is one stored image record, scoped to a tenant namespace.
// (tenant, path) is globally unique; width and height are always positive
// because a record is only created after the downloaded bytes decode.
type ImageAsset struct {
	ID         string
	Tenant     string
	Path       string
	OriginURL  string
	OriginType string
	OriginSize int64 // bytes reported by the origin; -1 when unknown
	Width      int
	Height     int
	CreatedAt  time.Time
}
