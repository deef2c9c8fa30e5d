package kvstore

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// timeTag is the sentinel key used to wrap a time.Time so it round-trips
// through the store's plain-JSON value encoding without being confused
// with an ordinary object payload (§4.8: "non-natively-serialisable types
// are wrapped with a type-tag").
const timeTag = "__cfninit.time__"

// MarshalValue encodes v for storage: time.Time is wrapped with the
// type-tag sentinel; everything else round-trips as plain JSON.
func MarshalValue(v interface{}) (string, error) {
	if t, ok := v.(time.Time); ok {
		b, err := json.Marshal(map[string]string{timeTag: t.UTC().Format(time.RFC3339Nano)})
		return string(b), err
	}
	b, err := json.Marshal(v)
	return string(b), err
}

// UnmarshalValue decodes a stored value, unwrapping the time-tag sentinel
// when present.
func UnmarshalValue(raw string) (interface{}, error) {
	var tagged map[string]jsoniter.RawMessage
	if err := json.Unmarshal([]byte(raw), &tagged); err == nil {
		if tv, ok := tagged[timeTag]; ok {
			var s string
			if err := json.Unmarshal(tv, &s); err != nil {
				return nil, err
			}
			return time.Parse(time.RFC3339Nano, s)
		}
	}
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}
