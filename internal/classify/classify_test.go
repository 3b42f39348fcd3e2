package classify

import (
	"errors"
	"testing"

	"github.com/vladimirnetworks/webcite/pkg/types"
)

func TestClassifyAcceptedTypes(t *testing.T) {
	cases := []struct {
		line string
		want types.ImageKind
	}{
		{"Content-Type: image/jpeg", types.KindJPEG},
		{"content-type: image/jpg", types.KindJPEG},
		{"CONTENT-TYPE: IMAGE/PNG", types.KindPNG},
		{"Content-Type: image/gif", types.KindGIF},
		{"Content-Type: image/png; charset=binary", types.KindPNG},
	}
	c := New(Options{})
	for _, tc := range cases {
		block := []string{"HTTP/1.1 200 OK", "Server: nginx", tc.line}
		kind, err := c.Classify(block)
		if err != nil {
			t.Fatalf("Classify(%q): unexpected error %v", tc.line, err)
		}
		if kind != tc.want {
			t.Fatalf("Classify(%q) = %v, want %v", tc.line, kind, tc.want)
		}
	}
}

func TestClassifyRejectsOtherTypes(t *testing.T) {
	c := New(Options{})
	for _, line := range []string{
		"Content-Type: text/html",
		"Content-Type: image/webp",
		"Content-Type: application/octet-stream",
	} {
		_, err := c.Classify([]string{"HTTP/1.1 200 OK", line})
		var rejected *types.RejectedError
		if !errors.As(err, &rejected) {
			t.Fatalf("Classify(%q) error = %v, want RejectedError", line, err)
		}
	}
}

func TestClassifyRejectsMissingContentType(t *testing.T) {
	c := New(Options{})
	_, err := c.Classify([]string{"HTTP/1.1 200 OK", "Server: nginx"})
	var rejected *types.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("error = %v, want RejectedError", err)
	}
}

func TestCheckSizeDisabledByDefault(t *testing.T) {
	c := New(Options{})
	for _, n := range []int64{-1, 0, 5, 100000} {
		if err := c.CheckSize(n); err != nil {
			t.Fatalf("CheckSize(%d): unexpected error %v", n, err)
		}
	}
}

func TestCheckSizeThreshold(t *testing.T) {
	c := New(Options{MinBodyBytes: 1024})
	if err := c.CheckSize(1023); err == nil {
		t.Fatal("expected rejection below threshold")
	}
	if err := c.CheckSize(1024); err != nil {
		t.Fatalf("CheckSize(1024): unexpected error %v", err)
	}
	// Unknown size passes; the downloaded body is re-checked later.
	if err := c.CheckSize(-1); err != nil {
		t.Fatalf("CheckSize(-1): unexpected error %v", err)
	}
}
