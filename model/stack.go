package model

import "time"

// StackResourceDetail is the resource detail C6 fetches and C7 diffs
// against.
type StackResourceDetail struct {
	LogicalID    string
	PhysicalID   string
	Metadata     string // raw JSON string; re-parsed by callers that need subkeys
	Status       string
	LastUpdated  time.Time
}

// InProgress reports whether Status ends with "_IN_PROGRESS": the hook
// processor skips the hook silently until next poll in that case.
func (d StackResourceDetail) InProgress() bool {
	return len(d.Status) >= len("_IN_PROGRESS") && d.Status[len(d.Status)-len("_IN_PROGRESS"):] == "_IN_PROGRESS"
}

// DeleteComplete reports whether Status is exactly "DELETE_COMPLETE": the
// observed value is then None (absent) regardless of prior Metadata.
func (d StackResourceDetail) DeleteComplete() bool {
	return d.Status == "DELETE_COMPLETE"
}

// Credentials is an access key / secret key pair, optionally with a
// security token and expiration when derived from an instance role.
// Lifetime is tied to the invoking operation; role-derived credentials
// are fetched lazily per signing rather than cached.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SecurityToken   string
	Expiration      *time.Time
}

// Expired reports whether the credentials carry an expiration that has
// passed.
func (c Credentials) Expired(now time.Time) bool {
	return c.Expiration != nil && now.After(*c.Expiration)
}
