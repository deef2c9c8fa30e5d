// Package urlutil classifies S3 endpoint URLs (virtual-hosted and path
// style) so the auth registry (C2) and retry client (C1) can recognise
// which bucket or host a request targets without each caller re-deriving
// the pattern. SQS and region endpoint URLs are not classified.
package urlutil

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	// virtual-hosted-style: <bucket>.s3[.<region>].amazonaws.com
	virtualHostedRe = regexp.MustCompile(`^([a-z0-9][a-z0-9.\-]*)\.s3(?:[.-][a-z0-9\-]+)?\.amazonaws\.com$`)
	// path-style: s3[.<region>].amazonaws.com/<bucket>/...
	pathStyleHostRe = regexp.MustCompile(`^s3(?:[.-][a-z0-9\-]+)?\.amazonaws\.com$`)
)

// IsS3Host reports whether host names an S3 endpoint in either
// virtual-hosted or path style.
func IsS3Host(host string) bool {
	host = strings.ToLower(host)
	return virtualHostedRe.MatchString(host) || pathStyleHostRe.MatchString(host)
}

// IsS3URL reports whether u targets an S3 endpoint.
func IsS3URL(u *url.URL) bool {
	if u == nil {
		return false
	}
	return IsS3Host(u.Host)
}

// Bucket extracts the bucket name from an S3 URL, whether virtual-hosted
// (subdomain) or path-style (first path segment); ok is false if u is not
// recognised as an S3 URL.
func Bucket(u *url.URL) (bucket string, ok bool) {
	if u == nil {
		return "", false
	}
	host := strings.ToLower(u.Host)
	if m := virtualHostedRe.FindStringSubmatch(host); m != nil {
		return m[1], true
	}
	if pathStyleHostRe.MatchString(host) {
		trimmed := strings.TrimPrefix(u.Path, "/")
		if trimmed == "" {
			return "", false
		}
		parts := strings.SplitN(trimmed, "/", 2)
		return parts[0], true
	}
	return "", false
}

// CanonicalizedResource returns the S3 v1 canonicalized resource for the
// signing string: "/<bucket><path>" for virtual-hosted URLs, else the raw
// path.
func CanonicalizedResource(u *url.URL) string {
	if bucket, ok := Bucket(u); ok {
		host := strings.ToLower(u.Host)
		if virtualHostedRe.MatchString(host) {
			return "/" + bucket + u.Path
		}
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}
