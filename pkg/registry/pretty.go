package registry

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
)

// prettyColumns is the number of ids per line printed by Pretty.
const prettyColumns = 3

// Pretty writes the registered ids grouped by namespace. If namespace is
// not empty only that namespace is written.
func (r *Registry) Pretty(w io.Writer, namespace string) error {
	if namespace != "" {
		if err := r.loadPlugin(namespace); err != nil {
			return err
		}
	}
	specs := r.All()

	groups := make(map[string][]string)
	for _, s := range specs {
		ns := s.id.Namespace
		if namespace != "" && ns != namespace {
			continue
		}
		groups[ns] = append(groups[ns], s.ID)
	}
	if namespace != "" && len(groups) == 0 {
		return &LookupError{
			ID:         namespace,
			Err:        ErrNamespaceNotFound,
			Suggestion: closest(namespace, r.Namespaces()),
		}
	}

	width := 0
	for _, ids := range groups {
		for _, id := range ids {
			width = max(width, len(id))
		}
	}

	var b strings.Builder
	for i, ns := range slices.Sorted(maps.Keys(groups)) {
		if i > 0 {
			b.WriteByte('\n')
		}
		title := ns
		if title == "" {
			title = "(default)"
		}
		fmt.Fprintf(&b, "===== %s =====\n", title)
		for j, id := range groups[ns] {
			if j%prettyColumns == prettyColumns-1 || j == len(groups[ns])-1 {
				b.WriteString(id)
				b.WriteByte('\n')
				continue
			}
			fmt.Fprintf(&b, "%-*s ", width, id)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
