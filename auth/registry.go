package auth

import (
	"net/url"
	"strings"

	"github.com/golang/glog"

	"github.com/cfninit/cfninit/model"
	"github.com/cfninit/cfninit/urlutil"
)

// Registry resolves a requesting context (an explicit named key, or a
// bucket/host extracted from the request URL) to a Signer.
type Registry struct {
	named         map[string]Signer
	bucketSigners map[string]Signer
	hostBasic     map[string]Signer
}

// NewRegistry builds a Registry from the model's Authentication section.
// Any entry of unrecognised type is logged and dropped; the rest continue
// to be loaded (§7 error handling policy).
func NewRegistry(entries map[string]model.AuthEntry, roleProvider func(roleName string) CredentialsProvider) *Registry {
	r := &Registry{
		named:         map[string]Signer{},
		bucketSigners: map[string]Signer{},
		hostBasic:     map[string]Signer{},
	}
	for key, e := range entries {
		switch strings.ToLower(e.Type) {
		case "s3":
			var creds CredentialsProvider
			if e.RoleName != "" && roleProvider != nil {
				creds = roleProvider(e.RoleName)
			} else {
				creds = StaticCredentials(model.Credentials{
					AccessKeyID:     e.AccessKeyID,
					SecretAccessKey: e.SecretAccessKey,
				})
			}
			s := &S3Signer{Credentials: creds}
			r.named[key] = s
			for _, b := range e.Buckets {
				r.bucketSigners[b] = s
			}
		case "basic":
			s := &BasicSigner{Username: e.Username, Password: e.Password}
			r.named[key] = s
			for _, u := range e.URIs {
				if parsed, err := url.Parse(u); err == nil {
					r.hostBasic[strings.ToLower(parsed.Host)] = s
				} else {
					r.hostBasic[strings.ToLower(u)] = s
				}
			}
		default:
			glog.Warningf("auth: dropping entry %q with unknown type %q", key, e.Type)
		}
	}
	return r
}

// Resolve finds the signer for a request: an explicit key takes priority;
// otherwise the default composite signer is consulted — bucket-keyed S3
// for known buckets, then host-keyed Basic for enumerated URIs.
func (r *Registry) Resolve(key string, reqURL *url.URL) (Signer, bool) {
	if key != "" {
		if s, ok := r.named[key]; ok {
			return s, true
		}
		return nil, false
	}
	if reqURL == nil {
		return nil, false
	}
	if bucket, ok := urlutil.Bucket(reqURL); ok {
		if s, ok := r.bucketSigners[bucket]; ok {
			return s, true
		}
	}
	if s, ok := r.hostBasic[strings.ToLower(reqURL.Host)]; ok {
		return s, true
	}
	return nil, false
}
