// Package metadata implements the stack-resource-describe client (C6): it
// signs a query-style AWS request (SigV2), fetches the resource detail,
// and unwraps the nested JSON-as-string Metadata field.
package metadata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/cfninit/cfninit/auth"
	"github.com/cfninit/cfninit/errs"
	"github.com/cfninit/cfninit/model"
	"github.com/cfninit/cfninit/retry"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Client calls the stack-resource-describe API.
type Client struct {
	Endpoint    string // e.g. "https://cloudformation.us-east-1.amazonaws.com/"
	Credentials auth.CredentialsProvider
	HTTP        *retry.Client
	Policy      retry.Policy
}

// DescribeStackResource fetches and parses the detail for one logical
// resource of one stack.
func (c *Client) DescribeStackResource(logicalID, stackName string) (model.StackResourceDetail, error) {
	var detail model.StackResourceDetail
	err := retry.WithRetry(c.Policy, "DescribeStackResource:"+logicalID, func(attempt int) (errs.RetryMode, error) {
		reqURL, err := c.sign(logicalID, stackName)
		if err != nil {
			return errs.Terminal, err
		}
		body, _, httpErr := c.HTTP.Get(reqURL, nil)
		if httpErr != nil {
			// A non-2xx response still carries the AWS Query API's own
			// JSON error envelope in its body, with its own
			// Throttling-vs-everything-else distinction that the
			// generic status-code classification above can't see;
			// re-run the same envelope parse used for a success body.
			if re, ok := httpErr.(*errs.RemoteError); ok && len(re.Body) > 0 {
				if _, envErr := parseResponse(re.Body); envErr != nil {
					if envRe, ok := envErr.(*errs.RemoteError); ok {
						return envRe.Mode, envRe
					}
				}
			}
			return classifyFromError(httpErr), httpErr
		}
		d, parseErr := parseResponse(body)
		if parseErr != nil {
			return errs.Retriable, parseErr
		}
		detail = d
		return errs.Terminal, nil
	})
	return detail, err
}

// sign builds the full, signed query URL per §4.6/§6: SigV2 over
// "GET\nhost\n/\n<sorted-encoded-params>".
func (c *Client) sign(logicalID, stackName string) (string, error) {
	creds, err := c.Credentials.Credentials()
	if err != nil {
		return "", err
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return "", err
	}
	params := map[string]string{
		"Action":             "DescribeStackResource",
		"LogicalResourceId":  logicalID,
		"StackName":          stackName,
		"Version":            "2010-05-15",
		"AWSAccessKeyId":     creds.AccessKeyID,
		"SignatureMethod":    "HmacSHA256",
		"SignatureVersion":   "2",
		"Timestamp":          time.Now().UTC().Format(time.RFC3339),
	}
	if creds.SecurityToken != "" {
		params["SecurityToken"] = creds.SecurityToken
	}
	canonicalQuery := canonicalize(params)
	stringToSign := "GET\n" + u.Host + "\n/\n" + canonicalQuery
	mac := hmac.New(sha256.New, []byte(creds.SecretAccessKey))
	mac.Write([]byte(stringToSign))
	params["Signature"] = base64.StdEncoding.EncodeToString(mac.Sum(nil))

	u.RawQuery = canonicalize(params)
	return u.String(), nil
}

// canonicalize sorts params by key and percent-encodes them per §6
// (unreserved set includes '~'), joined with '&' and '='.
func canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(encode(k))
		b.WriteByte('=')
		b.WriteString(encode(params[k]))
	}
	return b.String()
}

func encode(s string) string {
	escaped := url.QueryEscape(s)
	escaped = strings.ReplaceAll(escaped, "+", "%20")
	escaped = strings.ReplaceAll(escaped, "%7E", "~")
	return escaped
}

// classifyFromError picks the RetryMode for a failed attempt: an
// errs.RemoteError keeps the Mode it already carries (DescribeStackResource
// sets it from the JSON error envelope before the error gets here); any
// other error is Retriable.
func classifyFromError(err error) errs.RetryMode {
	if re, ok := err.(*errs.RemoteError); ok {
		return re.Mode
	}
	return errs.Retriable
}

// errorResponse mirrors the JSON error envelope AWS Query-style APIs
// return for a failed call.
type errorResponse struct {
	Error struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
	} `json:"Error"`
}

func parseResponse(body []byte) (model.StackResourceDetail, error) {
	var probe errorResponse
	if err := json.Unmarshal(body, &probe); err == nil && probe.Error.Code != "" {
		mode := errs.Terminal
		if strings.EqualFold(probe.Error.Code, "Throttling") {
			mode = errs.Retriable
		}
		return model.StackResourceDetail{}, &errs.RemoteError{Mode: mode, Cause: fmt.Errorf("%s: %s", probe.Error.Code, probe.Error.Message)}
	}

	var top map[string]jsoniter.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return model.StackResourceDetail{}, errors.Wrap(err, "metadata: parsing DescribeStackResource response")
	}
	var resultEnvelope struct {
		DescribeStackResourceResult struct {
			StackResourceDetail struct {
				LogicalResourceId    string              `json:"LogicalResourceId"`
				PhysicalResourceId   string              `json:"PhysicalResourceId"`
				ResourceStatus       string              `json:"ResourceStatus"`
				LastUpdatedTimestamp time.Time           `json:"LastUpdatedTimestamp"`
				Metadata             jsoniter.RawMessage `json:"Metadata"`
			} `json:"StackResourceDetail"`
		} `json:"DescribeStackResourceResult"`
	}
	raw, ok := top["DescribeStackResourceResponse"]
	if !ok {
		return model.StackResourceDetail{}, fmt.Errorf("metadata: missing DescribeStackResourceResponse envelope")
	}
	if err := json.Unmarshal(raw, &resultEnvelope); err != nil {
		return model.StackResourceDetail{}, errors.Wrap(err, "metadata: parsing DescribeStackResourceResult")
	}

	r := resultEnvelope.DescribeStackResourceResult.StackResourceDetail
	var metadataStr string
	if len(r.Metadata) > 0 {
		// Metadata is itself a JSON string (possibly holding a
		// re-escaped object); unwrap it to the raw text so callers can
		// re-parse it with extractValue.
		var s string
		if err := json.Unmarshal(r.Metadata, &s); err == nil {
			metadataStr = s
		} else {
			metadataStr = string(r.Metadata)
		}
	}
	return model.StackResourceDetail{
		LogicalID:   r.LogicalResourceId,
		PhysicalID:  r.PhysicalResourceId,
		Metadata:    metadataStr,
		Status:      r.ResourceStatus,
		LastUpdated: r.LastUpdatedTimestamp,
	}, nil
}
