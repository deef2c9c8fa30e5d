// Package hooks implements the hook processor (C7): on each poll it
// resolves every hook's watched path against the freshly (or
// per-poll-cached) fetched resource detail, classifies the observed
// transition, and fires the hook's action when its configured trigger
// matches.
package hooks

// splitEscaped splits path on unescaped '.', treating "\." as a literal
// dot (§4.7's dotted-path accessor). It is used both to parse a hook's
// own Resources.<logicalId>... path and to drill a subkey into a parsed
// Metadata document.
func splitEscaped(path string) []string {
	var segs []string
	var cur []byte
	i := 0
	for i < len(path) {
		c := path[i]
		if c == '\\' && i+1 < len(path) && path[i+1] == '.' {
			cur = append(cur, '.')
			i += 2
			continue
		}
		if c == '.' {
			segs = append(segs, string(cur))
			cur = cur[:0]
			i++
			continue
		}
		cur = append(cur, c)
		i++
	}
	segs = append(segs, string(cur))
	return segs
}

// extractValue drills into a parsed JSON document following segments; a
// missing intermediate key (or a non-object encountered mid-path) yields
// nil ("None"), never an error.
func extractValue(v interface{}, segments []string) interface{} {
	cur := v
	for _, seg := range segments {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		next, ok := m[seg]
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}
