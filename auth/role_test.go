package auth

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/ec2metadata"
	"github.com/aws/aws-sdk-go/aws/session"
)

func testMetadataClient(t *testing.T, handler http.HandlerFunc) *ec2metadata.EC2Metadata {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	sess, err := session.NewSession(aws.NewConfig().WithEndpoint(srv.URL).WithMaxRetries(0))
	if err != nil {
		t.Fatalf("session.NewSession: %v", err)
	}
	return ec2metadata.New(sess)
}

func TestRoleCredentialsProviderFetchesAndParses(t *testing.T) {
	meta := testMetadataClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/latest/meta-data/iam/security-credentials/my-role" {
			fmt.Fprint(w, `{"AccessKeyId":"AKID","SecretAccessKey":"SECRET","Token":"TOKEN","Expiration":"2030-01-01T00:00:00Z"}`)
			return
		}
		http.NotFound(w, r)
	})
	p := NewRoleCredentialsProvider(meta, "my-role")
	creds, err := p.Credentials()
	if err != nil {
		t.Fatalf("Credentials: %v", err)
	}
	if creds.AccessKeyID != "AKID" || creds.SecretAccessKey != "SECRET" || creds.SecurityToken != "TOKEN" {
		t.Errorf("got %+v", creds)
	}
	if creds.Expiration == nil {
		t.Error("expected an Expiration to be set")
	}
}

func TestRoleCredentialsProviderFetchesFreshEveryCall(t *testing.T) {
	var calls int64
	meta := testMetadataClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt64(&calls, 1)
		fmt.Fprintf(w, `{"AccessKeyId":"AKID-%d","SecretAccessKey":"S"}`, n)
	})
	p := NewRoleCredentialsProvider(meta, "my-role")

	first, err := p.Credentials()
	if err != nil {
		t.Fatalf("Credentials (1st): %v", err)
	}
	second, err := p.Credentials()
	if err != nil {
		t.Fatalf("Credentials (2nd): %v", err)
	}
	if first.AccessKeyID == second.AccessKeyID {
		t.Error("expected credentials to be re-fetched (not cached) on the second call")
	}
}

func TestInstanceIDMemoizesAcrossCalls(t *testing.T) {
	var calls int64
	meta := testMetadataClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Count only GETs: the client's session-token request is a PUT.
		if r.Method == http.MethodGet {
			atomic.AddInt64(&calls, 1)
		}
		fmt.Fprint(w, "i-0123456789abcdef0")
	})
	id := NewInstanceID(meta)
	first, err := id.Get()
	if err != nil {
		t.Fatalf("Get (1st): %v", err)
	}
	second, err := id.Get()
	if err != nil {
		t.Fatalf("Get (2nd): %v", err)
	}
	if first != second || first != "i-0123456789abcdef0" {
		t.Errorf("got %q, %q", first, second)
	}
	if atomic.LoadInt64(&calls) != 1 {
		t.Errorf("calls = %d, want exactly 1 (sync.Once memoisation)", calls)
	}
}
