package auth

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/ec2metadata"
	"github.com/aws/aws-sdk-go/aws/session"
	"golang.org/x/sync/singleflight"

	"github.com/cfninit/cfninit/model"
)

// roleCredentialsDoc mirrors the JSON document instance metadata returns
// under iam/security-credentials/<role>.
type roleCredentialsDoc struct {
	AccessKeyID     string    `json:"AccessKeyId"`
	SecretAccessKey string    `json:"SecretAccessKey"`
	Token           string    `json:"Token"`
	Expiration      time.Time `json:"Expiration"`
}

// NewInstanceMetadataClient builds an ec2metadata client for a
// RoleCredentialsProvider; instance-metadata probes are bounded to
// 2 seconds per §5.
func NewInstanceMetadataClient() (*ec2metadata.EC2Metadata, error) {
	sess, err := session.NewSession(aws.NewConfig().
		WithMaxRetries(0).
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}))
	if err != nil {
		return nil, err
	}
	return ec2metadata.New(sess), nil
}

// RoleCredentialsProvider fetches credentials from instance metadata
// fresh on every call: per §9's Open Questions, credentials are never
// cached across signings, even across a single request's retries.
type RoleCredentialsProvider struct {
	roleName string
	meta     *ec2metadata.EC2Metadata
	group    singleflight.Group
}

// NewRoleCredentialsProvider returns a provider for the named instance
// role.
func NewRoleCredentialsProvider(meta *ec2metadata.EC2Metadata, roleName string) *RoleCredentialsProvider {
	return &RoleCredentialsProvider{roleName: roleName, meta: meta}
}

func (p *RoleCredentialsProvider) Credentials() (model.Credentials, error) {
	v, err, _ := p.group.Do(p.roleName, func() (interface{}, error) {
		path := "iam/security-credentials/" + p.roleName
		body, err := p.meta.GetMetadata(path)
		if err != nil {
			return nil, fmt.Errorf("auth: fetching role credentials for %q: %w", p.roleName, err)
		}
		var doc roleCredentialsDoc
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return nil, fmt.Errorf("auth: parsing role credentials for %q: %w", p.roleName, err)
		}
		return doc, nil
	})
	if err != nil {
		return model.Credentials{}, err
	}
	doc := v.(roleCredentialsDoc)
	exp := doc.Expiration
	return model.Credentials{
		AccessKeyID:     doc.AccessKeyID,
		SecretAccessKey: doc.SecretAccessKey,
		SecurityToken:   doc.Token,
		Expiration:      &exp,
	}, nil
}

// InstanceID memoises the instance-id probe with one-shot semantics
// (Design Notes: model the single cached value as a lazy initialiser
// guarded by sync.Once, not a mutable module-level variable).
type InstanceID struct {
	once  sync.Once
	value string
	err   error
	meta  *ec2metadata.EC2Metadata
}

func NewInstanceID(meta *ec2metadata.EC2Metadata) *InstanceID {
	return &InstanceID{meta: meta}
}

func (i *InstanceID) Get() (string, error) {
	i.once.Do(func() {
		i.value, i.err = i.meta.GetMetadata("instance-id")
	})
	return i.value, i.err
}
