package s3

import (
	"net/url"
	"strings"
)

// urlBuilder derives public object URLs from the adapter configuration.
type urlBuilder struct {
	publicBase string
	endpoint   *url.URL
	pathStyle  bool
	region     string
}

func newURLBuilder(cfg Config) urlBuilder {
	b := urlBuilder{
		publicBase: strings.TrimRight(strings.TrimSpace(cfg.PublicBaseURL), "/"),
		pathStyle:  cfg.UsePathStyle,
		region:     cfg.Region,
	}
	if endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"); endpoint != "" {
		if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
			b.endpoint = u
		}
	}
	return b
}

func (b urlBuilder) objectURL(bucket, key string) string {
	path := escapeKey(key)
	switch {
	case b.publicBase != "":
		return b.publicBase + "/" + path
	case b.endpoint != nil && b.pathStyle:
		return b.endpoint.String() + "/" + bucket + "/" + path
	case b.endpoint != nil:
		return b.endpoint.Scheme + "://" + bucket + "." + b.endpoint.Host + "/" + path
	default:
		return "https://" + bucket + ".s3." + b.region + ".amazonaws.com/" + path
	}
}

// escapeKey escapes each path segment of key and keeps the separators.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
