// Package model defines the declarative data model cfninit drives a host
// into: the top-level Model document, its ConfigDefinitions and
// ConfigSets, the Changes accumulator tools report into, and the Hook /
// StackResourceDetail / Credentials entities the update loop works with.
package model

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	// InitKey is the well-known key holding the Init section.
	InitKey = "AWS::CloudFormation::Init"
	// AuthKey is the well-known key holding the Authentication section.
	AuthKey = "AWS::CloudFormation::Authentication"
	// ConfigSetsKey is the reserved sub-key of the Init section.
	ConfigSetsKey = "configSets"
	// DefaultConfigName is the bare top-level config used when the model
	// carries no configSets key at all.
	DefaultConfigName = "config"
	// DefaultConfigSetName is the name synthesised for DefaultConfigName.
	DefaultConfigSetName = "default"
)

// Model is the parsed top-level declarative input.
type Model struct {
	// Init maps config/configSet names (everything except ConfigSetsKey)
	// to their raw JSON, plus ConfigSetsKey to the raw configSets object.
	// It is kept raw because a ConfigDefinition is only decoded once its
	// name is actually referenced by a requested ConfigSet.
	Init map[string]jsoniter.RawMessage
	// Auth maps an authentication-registry key to its entry.
	Auth map[string]AuthEntry
}

// AuthEntry is one entry of the Authentication section (§6): either an S3
// or a basic-auth signer bootstrap. Fields not relevant to the entry's
// Type are ignored by the auth registry.
type AuthEntry struct {
	Type            string   `json:"type"`
	AccessKeyID     string   `json:"accessKeyId,omitempty"`
	SecretAccessKey string   `json:"secretKey,omitempty"`
	Buckets         []string `json:"buckets,omitempty"`
	RoleName        string   `json:"roleName,omitempty"`
	Username        string   `json:"username,omitempty"`
	Password        string   `json:"password,omitempty"`
	URIs            []string `json:"uris,omitempty"`
}

// ParseModel decodes raw into a Model, keeping ConfigDefinition bodies raw.
func ParseModel(raw []byte) (*Model, error) {
	var top map[string]jsoniter.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, err
	}
	m := &Model{Init: map[string]jsoniter.RawMessage{}, Auth: map[string]AuthEntry{}}
	if initRaw, ok := top[InitKey]; ok {
		if err := json.Unmarshal(initRaw, &m.Init); err != nil {
			return nil, err
		}
	}
	if authRaw, ok := top[AuthKey]; ok {
		var auth map[string]AuthEntry
		if err := json.Unmarshal(authRaw, &auth); err != nil {
			return nil, err
		}
		m.Auth = auth
	}
	return m, nil
}

// ConfigDefinition decodes the named config's raw body.
func (m *Model) ConfigDefinition(name string) (*ConfigDefinition, bool, error) {
	raw, ok := m.Init[name]
	if !ok {
		return nil, false, nil
	}
	var cd ConfigDefinition
	if err := json.Unmarshal(raw, &cd); err != nil {
		return nil, true, err
	}
	return &cd, true, nil
}

// HasConfigSets reports whether the model carries an explicit configSets key.
func (m *Model) HasConfigSets() bool {
	_, ok := m.Init[ConfigSetsKey]
	return ok
}

// RawConfigSets returns the raw configSets object, if present.
func (m *Model) RawConfigSets() (jsoniter.RawMessage, bool) {
	raw, ok := m.Init[ConfigSetsKey]
	return raw, ok
}

// IsConfigName reports whether name denotes a known config (i.e. appears
// in Init and is not the configSets key itself).
func (m *Model) IsConfigName(name string) bool {
	if name == ConfigSetsKey {
		return false
	}
	_, ok := m.Init[name]
	return ok
}
