package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Location is a parsed protocol or export address.
type Location struct {
	Scheme string // "file" or "s3"
	Bucket string
	Path   string
}

// ParseLocation accepts s3://bucket/key, file:///path and plain local paths.
func ParseLocation(uri string) (Location, error) {
	if uri == "" {
		return Location{}, fmt.Errorf("empty location")
	}
	if !strings.Contains(uri, "://") {
		return Location{Scheme: "file", Path: uri}, nil
	}

	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, fmt.Errorf("invalid location %q: %w", uri, err)
	}
	switch u.Scheme {
	case "file":
		if u.Path == "" {
			return Location{}, fmt.Errorf("invalid location %q: missing path", uri)
		}
		return Location{Scheme: "file", Path: u.Path}, nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, fmt.Errorf("invalid location %q: want s3://bucket/key", uri)
		}
		return Location{Scheme: "s3", Bucket: u.Host, Path: key}, nil
	}
	return Location{}, fmt.Errorf("unsupported scheme %q in %q", u.Scheme, uri)
}

// Open resolves uri to a provider and the path to pass to it.
func Open(ctx context.Context, uri string) (Provider, string, error) {
	loc, err := ParseLocation(uri)
	if err != nil {
		return nil, "", err
	}
	if loc.Scheme == "s3" {
		p, err := NewS3Provider(ctx, loc.Bucket, "")
		if err != nil {
			return nil, "", err
		}
		return p, loc.Path, nil
	}
	return NewLocalProvider(""), loc.Path, nil
}
