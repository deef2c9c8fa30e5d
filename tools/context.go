// Package tools implements the tool dispatch layer (C4): a uniform,
// idempotent "install-if-missing" contract across package managers,
// archive extraction, the file writer, the command runner, user/group
// creation and service supervision, each reporting the entity names it
// actually mutated into the shared Changes accumulator.
package tools

import (
	"github.com/cfninit/cfninit/auth"
	"github.com/cfninit/cfninit/model"
	"github.com/cfninit/cfninit/retry"
)

// Context carries the collaborators every tool needs: the auth registry
// for signed remote fetches, the retry/HTTP client, and the Changes
// accumulator the whole config run shares.
type Context struct {
	Auth    *auth.Registry
	HTTP    *retry.Client
	Changes *model.Changes
}
