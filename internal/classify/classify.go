// Package classify decides whether a fetched response is an acceptable
// image by inspecting its response headers, and maps it to one of the
// three supported formats.
package classify

import (
	"strings"

	"github.com/vladimirnetworks/webcite/pkg/types"
)

// Options tunes the classifier.
type Options struct {
	// MinBodyBytes rejects responses whose body is known to be smaller
	// than this many bytes. Zero disables the check; earlier revisions
	// of the system used 1024 and falsely rejected small icons.
	MinBodyBytes int64
}

// Classifier scans response header blocks for an accepted image type.
type Classifier struct {
	opts Options
}

// New constructs a classifier.
func New(opts Options) *Classifier {
	return &Classifier{opts: opts}
}

// Classify scans the header lines of a single response hop, case
// insensitively, for a content-type line naming a supported image
// format. Any other content type, or none at all, rejects the response.
func (c *Classifier) Classify(headerLines []string) (types.ImageKind, error) {
	for _, line := range headerLines {
		lower := strings.ToLower(line)
		if !strings.HasPrefix(lower, "content-type:") {
			continue
		}
		value := strings.TrimSpace(line[len("content-type:"):])
		lowerValue := strings.ToLower(value)
		switch {
		case strings.Contains(lowerValue, "jpeg"), strings.Contains(lowerValue, "jpg"):
			return types.KindJPEG, nil
		case strings.Contains(lowerValue, "png"):
			return types.KindPNG, nil
		case strings.Contains(lowerValue, "gif"):
			return types.KindGIF, nil
		}
		return "", &types.RejectedError{ContentType: value}
	}
	return "", &types.RejectedError{}
}

// CheckSize applies the minimum body size policy to a byte count.
// Negative counts mean the size is unknown and always pass.
func (c *Classifier) CheckSize(n int64) error {
	if c.opts.MinBodyBytes <= 0 || n < 0 || n >= c.opts.MinBodyBytes {
		return nil
	}
	return &types.RejectedError{Reason: "body smaller than minimum size"}
}
