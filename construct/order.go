package construct

import (
	"sort"

	"github.com/cfninit/cfninit/errs"
)

// linearize runs Kahn's topological sort over the configSet reference
// graph (§4.5 Ordering phase): a root has no unresolved references; once
// popped, every reference inside it is replaced with the target's
// already-collapsed definition list, and any newly dependency-free
// configSet is enqueued. An empty root set up front, or a non-empty
// remainder at the end, both raise CircularConfigSetDependencyError.
func linearize(sets map[string][]entry) (map[string][]string, error) {
	names := make([]string, 0, len(sets))
	for name := range sets {
		names = append(names, name)
	}
	sort.Strings(names)

	indegree := make(map[string]int, len(names))
	reverse := make(map[string][]string, len(names))

	for _, name := range names {
		distinct := map[string]bool{}
		for _, e := range sets[name] {
			if e.kind != setRefEntry {
				continue
			}
			if _, ok := sets[e.name]; !ok {
				return nil, &errs.NoSuchConfigSetError{Name: e.name}
			}
			distinct[e.name] = true
		}
		indegree[name] = len(distinct)
		for ref := range distinct {
			reverse[ref] = append(reverse[ref], name)
		}
	}

	var queue []string
	for _, name := range names {
		if indegree[name] == 0 {
			queue = append(queue, name)
		}
	}
	if len(queue) == 0 && len(names) > 0 {
		return nil, &errs.CircularConfigSetDependencyError{Remaining: names}
	}

	collapsed := make(map[string][]string, len(names))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]

		var list []string
		for _, e := range sets[name] {
			if e.kind == configEntry {
				list = append(list, e.name)
			} else {
				list = append(list, collapsed[e.name]...)
			}
		}
		collapsed[name] = list

		consumers := append([]string(nil), reverse[name]...)
		sort.Strings(consumers)
		for _, consumer := range consumers {
			indegree[consumer]--
			if indegree[consumer] == 0 {
				queue = append(queue, consumer)
			}
		}
	}

	if len(collapsed) != len(names) {
		var remaining []string
		for _, name := range names {
			if _, ok := collapsed[name]; !ok {
				remaining = append(remaining, name)
			}
		}
		return nil, &errs.CircularConfigSetDependencyError{Remaining: remaining}
	}
	return collapsed, nil
}
