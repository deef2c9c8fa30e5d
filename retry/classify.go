package retry

import (
	"crypto/x509"
	"errors"
	"net/http"

	"github.com/cfninit/cfninit/errs"
)

// Classify maps one completed attempt to a retry mode. resp is nil on a
// transport-level failure (connection error, timeout); err carries that
// failure in that case.
func Classify(resp *http.Response, err error) errs.RetryMode {
	if err != nil {
		var certErr x509.CertificateInvalidError
		var unknownAuthErr x509.UnknownAuthorityError
		if errors.As(err, &certErr) || errors.As(err, &unknownAuthErr) {
			return errs.Terminal
		}
		// connection error, timeout: retriable.
		return errs.Retriable
	}
	if resp == nil {
		return errs.Retriable
	}
	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return errs.RetriableForever
	case resp.StatusCode == http.StatusRequestTimeout:
		return errs.Retriable
	case resp.StatusCode == http.StatusNotFound:
		return errs.Retriable
	case resp.StatusCode >= 500:
		return errs.Retriable
	case resp.StatusCode >= 400:
		return errs.Terminal
	default:
		return errs.Terminal // 2xx/3xx: not a failure at all; callers only classify failed attempts
	}
}
