package retry

import (
	"errors"
	"net/http"
	"testing"

	"github.com/cfninit/cfninit/errs"
)

func TestClassifyStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		want   errs.RetryMode
	}{
		{http.StatusServiceUnavailable, errs.RetriableForever},
		{http.StatusRequestTimeout, errs.Retriable},
		{http.StatusNotFound, errs.Retriable},
		{http.StatusInternalServerError, errs.Retriable},
		{http.StatusBadGateway, errs.Retriable},
		{http.StatusBadRequest, errs.Terminal},
		{http.StatusForbidden, errs.Terminal},
		{http.StatusOK, errs.Terminal},
	}
	for _, tc := range cases {
		resp := &http.Response{StatusCode: tc.status}
		if got := Classify(resp, nil); got != tc.want {
			t.Errorf("Classify(status=%d) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestClassifyTransportError(t *testing.T) {
	if got := Classify(nil, errors.New("connection reset")); got != errs.Retriable {
		t.Errorf("Classify(transport error) = %v, want Retriable", got)
	}
}
