// Package urlres resolves image references found in HTML fragments
// against the URL of the document that contained them.
//
// Resolution is deliberately string-based: no percent-decoding and no
// dot-segment normalisation is performed, so the produced URLs stay
// byte-compatible with origin URLs already stored by earlier versions
// of the system.
package urlres

import (
	"net/url"
	"strings"

	"github.com/vladimirnetworks/webcite/pkg/types"
)

// Base is a parsed document URL a relative reference resolves against.
type Base struct {
	Scheme string
	Host   string
	Path   string
}

// ParseBase breaks a document URL into scheme, host, and path. It fails
// with InvalidBaseURLError when either scheme or host is missing.
func ParseBase(base string) (Base, error) {
	u, err := url.Parse(base)
	if err != nil {
		return Base{}, &types.InvalidBaseURLError{Base: base, Err: err}
	}
	if u.Scheme == "" || u.Host == "" {
		return Base{}, &types.InvalidBaseURLError{Base: base}
	}
	return Base{Scheme: u.Scheme, Host: u.Host, Path: u.Path}, nil
}

// Resolve turns an image reference into an absolute fetchable URL.
// References that already carry an http or https scheme pass through
// unchanged; everything else is joined to the base by concatenation.
func (b Base) Resolve(reference string) string {
	if hasHTTPScheme(reference) {
		return reference
	}

	reference = strings.TrimSpace(reference)

	if strings.HasPrefix(reference, "/") {
		return b.Scheme + "://" + b.Host + "/" + strings.TrimLeft(reference, "/")
	}
	dir := b.Path
	if idx := strings.LastIndex(dir, "/"); idx >= 0 {
		dir = dir[:idx+1]
	}
	return b.Scheme + "://" + b.Host + "/" + strings.TrimLeft(dir, "/") + reference
}

// Resolve is the one-shot form of Base.Resolve for callers that do not
// hold a parsed base.
func Resolve(reference, base string) (string, error) {
	b, err := ParseBase(base)
	if err != nil {
		return "", err
	}
	return b.Resolve(reference), nil
}

func hasHTTPScheme(reference string) bool {
	u, err := url.Parse(reference)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
