// Package auth implements the auth registry (C2): a signer is a function
// from request to request, and a registry maps a requesting context
// (bucket/URI, or an explicit named key) to the right one. Two signer
// families are supported: AWS S3 signature v1 and HTTP Basic; either can
// be the "default" consulted for requests not explicitly claimed by a
// named entry.
package auth

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/cfninit/cfninit/model"
	"github.com/cfninit/cfninit/urlutil"
)

// Signer signs an outgoing request in place.
type Signer interface {
	Sign(req *http.Request) error
}

// CredentialsProvider supplies Credentials, fetched fresh on every call by
// design (§9 Open Questions: role-derived credentials are never cached
// across signings, even across retries of the same logical request).
type CredentialsProvider interface {
	Credentials() (model.Credentials, error)
}

// StaticCredentials is a CredentialsProvider for fixed, model-supplied
// keys.
type StaticCredentials model.Credentials

func (c StaticCredentials) Credentials() (model.Credentials, error) { return model.Credentials(c), nil }

// S3Signer implements the AWS v1-style S3 signature (§4.2).
type S3Signer struct {
	Credentials CredentialsProvider
}

func (s *S3Signer) Sign(req *http.Request) error {
	creds, err := s.Credentials.Credentials()
	if err != nil {
		return err
	}

	if req.Header.Get("Date") == "" {
		req.Header.Set("X-Amz-Date", time.Now().UTC().Format(time.RFC1123))
	}
	if creds.SecurityToken != "" {
		req.Header.Set("x-amz-security-token", creds.SecurityToken)
	}

	stringToSign := canonicalString(req)
	mac := hmac.New(sha1.New, []byte(creds.SecretAccessKey))
	mac.Write([]byte(stringToSign))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	req.Header.Set("Authorization", "AWS "+creds.AccessKeyID+":"+sig)
	return nil
}

// canonicalString builds "METHOD\nContent-MD5\nContent-Type\nDate\n
// canonicalizedAmzHeaders\ncanonicalizedResource" per §4.2.
// canonicalizedAmzHeaders already carries its own trailing newline per
// header line (or is empty if there are none), so it is concatenated
// directly onto the resource with no extra separator.
func canonicalString(req *http.Request) string {
	head := req.Method + "\n" +
		req.Header.Get("Content-MD5") + "\n" +
		req.Header.Get("Content-Type") + "\n" +
		req.Header.Get("Date") + "\n"
	return head + canonicalizedAmzHeaders(req.Header) + urlutil.CanonicalizedResource(req.URL)
}

// canonicalizedAmzHeaders lower-cases, sorts, and joins every x-amz-*
// header as "name:value", one per line, with a trailing newline. An
// empty result (no x-amz- headers) contributes nothing.
func canonicalizedAmzHeaders(h http.Header) string {
	var names []string
	lower := map[string]string{}
	for name := range h {
		ln := strings.ToLower(name)
		if !strings.HasPrefix(ln, "x-amz-") {
			continue
		}
		names = append(names, ln)
		lower[ln] = strings.Join(h.Values(name), ",")
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte(':')
		b.WriteString(lower[n])
		b.WriteByte('\n')
	}
	return b.String()
}

// BasicSigner implements HTTP Basic authentication.
type BasicSigner struct {
	Username string
	Password string
}

func (b *BasicSigner) Sign(req *http.Request) error {
	req.SetBasicAuth(b.Username, b.Password)
	return nil
}
