package hooks

import (
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/golang/glog"

	"github.com/cfninit/cfninit/errs"
	"github.com/cfninit/cfninit/kvstore"
	"github.com/cfninit/cfninit/metadata"
	"github.com/cfninit/cfninit/model"
	"github.com/cfninit/cfninit/process"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Processor owns a list of hooks and the resource-fetching client they
// watch through.
type Processor struct {
	Hooks     []model.Hook
	StackName string
	Metadata  *metadata.Client
	StorePath string
}

// Poll runs one pass over every hook, in input order, against a single
// freshly opened store. An UpdateError aborts the whole poll (the one
// error kind the processor does not swallow); any other failure is
// logged and the hook's prior state is left in place for the next poll.
func (p *Processor) Poll() error {
	store, err := kvstore.Open(p.StorePath)
	if err != nil {
		return errors.Wrap(err, "hooks: opening state store")
	}
	defer store.Close()

	pollsTotal.Inc()
	cache := map[string]model.StackResourceDetail{}
	for _, h := range p.Hooks {
		if err := p.processHook(h, store, cache); err != nil {
			if ue, ok := err.(*errs.UpdateError); ok {
				return ue
			}
			hooksErroredTotal.Inc()
			glog.Warningf("hooks: %s: %v", h.Name, err)
		}
	}
	return nil
}

func (p *Processor) processHook(h model.Hook, store *kvstore.Store, cache map[string]model.StackResourceDetail) error {
	segs := splitEscaped(h.Path)
	if len(segs) < 2 || segs[0] != "Resources" || segs[1] == "" {
		return &errs.UpdateError{HookName: h.Name, Path: h.Path, Reason: "path must be Resources.<logicalId>[...]"}
	}
	logicalID := segs[1]

	detail, ok := cache[logicalID]
	if !ok {
		d, err := p.Metadata.DescribeStackResource(logicalID, p.StackName)
		if err != nil {
			return err
		}
		cache[logicalID] = d
		detail = d
	}
	if detail.InProgress() {
		return nil
	}

	observed, err := resolveObserved(h, segs, detail)
	if err != nil {
		return err
	}

	oldData, err := loadOld(store, h)
	if err != nil {
		return err
	}

	if !classify(h, oldData, observed) {
		return commit(store, h, observed)
	}

	hooksFiredTotal.Inc()
	env := buildEnv(segs, oldData, observed)
	action := h.Action
	if h.RunAs != "" {
		action = "su " + h.RunAs + " -c " + shellQuote(action)
	}
	res, err := process.Run(action, process.Options{Env: env})
	if err != nil {
		return err
	}
	if res.ExitCode == 0 {
		return commit(store, h, observed)
	}
	glog.Warningf("hooks: %s: action exited %d, retrying next poll", h.Name, res.ExitCode)
	return nil
}

func resolveObserved(h model.Hook, segs []string, detail model.StackResourceDetail) (interface{}, error) {
	if len(segs) == 2 {
		if detail.DeleteComplete() {
			return nil, nil
		}
		return detail.LastUpdated, nil
	}
	field := segs[2]
	subkey := segs[3:]
	switch field {
	case "Metadata":
		if detail.DeleteComplete() {
			return nil, nil
		}
		var parsed interface{}
		if detail.Metadata != "" {
			if err := json.Unmarshal([]byte(detail.Metadata), &parsed); err != nil {
				return nil, &errs.UpdateError{HookName: h.Name, Path: h.Path, Reason: "metadata is not valid JSON"}
			}
		}
		return extractValue(parsed, subkey), nil
	case "PhysicalResourceId":
		if len(subkey) > 0 {
			return nil, &errs.UpdateError{HookName: h.Name, Path: h.Path, Reason: "PhysicalResourceId has no subkeys"}
		}
		if detail.DeleteComplete() {
			return nil, nil
		}
		return detail.PhysicalID, nil
	default:
		return nil, &errs.UpdateError{HookName: h.Name, Path: h.Path, Reason: "unknown resource field " + field}
	}
}

func loadOld(store *kvstore.Store, h model.Hook) (interface{}, error) {
	raw, ok, err := store.Get(h.StateKey())
	if err != nil || !ok {
		return nil, err
	}
	return kvstore.UnmarshalValue(raw)
}

// classify reports whether the configured trigger fires for this
// old->new transition (§4.7): add (old falsy, new truthy), remove (old
// truthy, new falsy), update (both truthy and different). A `None` leaf
// is conflated with absence throughout.
func classify(h model.Hook, oldData, newData interface{}) bool {
	oldTruthy, newTruthy := truthy(oldData), truthy(newData)
	switch {
	case h.Wants(model.TriggerAdd) && !oldTruthy && newTruthy:
		return true
	case h.Wants(model.TriggerRemove) && oldTruthy && !newTruthy:
		return true
	case h.Wants(model.TriggerUpdate) && oldTruthy && newTruthy && !jsonEqual(oldData, newData):
		return true
	}
	return false
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	case time.Time:
		return !t.IsZero()
	default:
		return true
	}
}

func jsonEqual(a, b interface{}) bool {
	ab, errA := json.Marshal(a)
	bb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ab) == string(bb)
}

// buildEnv builds the CFN_OLD_<K>/CFN_NEW_<K> pair for the action's
// environment, K selected by path shape (§4.7). A side whose raw value is
// nil is omitted entirely rather than set empty, so a script testing
// ${VAR+x} sees it as genuinely unset on an add/remove transition.
func buildEnv(segs []string, oldData, newData interface{}) []string {
	key := fieldKey(segs)
	var env []string
	if oldData != nil {
		env = append(env, "CFN_OLD_"+key+"="+stringify(oldData))
	}
	if newData != nil {
		env = append(env, "CFN_NEW_"+key+"="+stringify(newData))
	}
	return env
}

func fieldKey(segs []string) string {
	if len(segs) == 2 {
		return "LAST_UPDATED"
	}
	switch segs[2] {
	case "Metadata":
		return "METADATA"
	case "PhysicalResourceId":
		return "PHYSICAL_RESOURCE_ID"
	default:
		return "VALUE"
	}
}

// stringify renders a payload for the process environment: datetimes as
// ISO-8601, everything else as JSON text (a bare string unwrapped first).
func stringify(v interface{}) string {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339)
	}
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func commit(store *kvstore.Store, h model.Hook, newData interface{}) error {
	encoded, err := kvstore.MarshalValue(newData)
	if err != nil {
		return err
	}
	return store.Set(h.StateKey(), encoded)
}

func shellQuote(s string) string {
	escaped := ""
	for _, r := range s {
		if r == '\'' {
			escaped += `'\''`
		} else {
			escaped += string(r)
		}
	}
	return "'" + escaped + "'"
}
