// Package retry implements the retrying, authenticated, checksum-verifying
// HTTP client (C1): GET only (no PUT is offered), with exponential backoff over the
// terminal/retriable/retriable-forever taxonomy in errs.RetryMode, and MD5
// verification against an S3 ETag when applicable.
package retry

import (
	"bytes"
	"crypto/md5"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/golang/glog"

	"github.com/cfninit/cfninit/errs"
	"github.com/cfninit/cfninit/urlutil"
)

// chunkSize is the streaming copy buffer size: large downloads never need
// to fit in memory.
const chunkSize = 10 * 1024

// Signer signs an outgoing request in place (adds Authorization / date /
// token headers). Implemented by the types in package auth; declared here
// so package retry never needs to import auth.
type Signer interface {
	Sign(req *http.Request) error
}

// Client is the shared HTTP client every remote fetch in cfninit goes
// through.
type Client struct {
	Policy Policy
	HTTP   *http.Client
}

// NewClient builds a Client. When frozen is true (a single-binary build
// ships its own CA bundle), caCertPEM is used in place of the platform
// default trust store.
func NewClient(policy Policy, frozen bool, caCertPEM []byte) *Client {
	hc := &http.Client{Timeout: 0}
	if frozen && len(caCertPEM) > 0 {
		pool := x509.NewCertPool()
		if pool.AppendCertsFromPEM(caCertPEM) {
			hc.Transport = &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}
		} else {
			glog.Warningf("retry: failed to parse shipped CA bundle, falling back to platform default")
		}
	}
	return &Client{Policy: policy, HTTP: hc}
}

// Get fetches url, verifying an S3 checksum when applicable, and returns
// the full body plus response headers.
func (c *Client) Get(rawURL string, signer Signer) ([]byte, http.Header, error) {
	var (
		buf     bytes.Buffer
		headers http.Header
	)
	err := c.do(rawURL, signer, func(resp *http.Response, reqURL *url.URL) error {
		buf.Reset()
		headers = resp.Header
		return streamVerify(resp, reqURL, &buf)
	})
	if err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), headers, nil
}

// GetToFile streams url directly into dest, truncating it first, so
// arbitrarily large archives never need to fit in memory.
func (c *Client) GetToFile(rawURL, dest string, signer Signer) error {
	return c.do(rawURL, signer, func(resp *http.Response, reqURL *url.URL) error {
		f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		return streamVerify(resp, reqURL, f)
	})
}

// do runs one GET through the shared WithRetry combinator.
func (c *Client) do(rawURL string, signer Signer, onSuccess func(*http.Response, *url.URL) error) error {
	reqURL, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	return WithRetry(c.Policy, rawURL, func(attempt int) (errs.RetryMode, error) {
		req, err := http.NewRequest(http.MethodGet, rawURL, nil)
		if err != nil {
			return errs.Terminal, err
		}
		if signer != nil {
			if err := signer.Sign(req); err != nil {
				return errs.Terminal, err
			}
		}
		resp, httpErr := c.HTTP.Do(req)
		mode := Classify(resp, httpErr)
		if httpErr == nil && resp.StatusCode < 400 {
			cerr := onSuccess(resp, reqURL)
			resp.Body.Close()
			if cerr == nil {
				return mode, nil
			}
			return errs.Retriable, cerr
		}
		if resp != nil {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return mode, &errs.RemoteError{URL: rawURL, StatusCode: resp.StatusCode, Mode: mode, Cause: httpErr, Body: body}
		}
		return mode, &errs.RemoteError{URL: rawURL, Mode: mode, Cause: httpErr}
	})
}

// streamVerify copies resp.Body to w in chunkSize chunks, verifying the
// MD5 against the response's ETag when the URL is an S3 host and the
// ETag is non-multipart (no '-').
func streamVerify(resp *http.Response, reqURL *url.URL, w io.Writer) error {
	etag := strings.Trim(resp.Header.Get("ETag"), `"`)
	verify := urlutil.IsS3URL(reqURL) && etag != "" && !strings.Contains(etag, "-")

	var dst io.Writer = w
	h := md5.New()
	if verify {
		dst = io.MultiWriter(w, h)
	}
	buf := make([]byte, chunkSize)
	if _, err := io.CopyBuffer(dst, resp.Body, buf); err != nil {
		return err
	}
	if verify {
		sum := hex.EncodeToString(h.Sum(nil))
		if sum != etag {
			return &errs.ChecksumError{URL: reqURL.String(), Expected: etag, Actual: sum}
		}
	}
	return nil
}
