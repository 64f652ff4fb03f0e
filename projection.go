package toolbox

import (
	"fmt"
	"strings"
)

// ParseProjection compiles the attribute paths to project into a projection
// expression. Duplicate paths are ignored and a path nested under another
// requested path is merged into it, since DynamoDB rejects overlapping
// document paths. id namespaces the placeholders (#p{id}_N).
func ParseProjection(schema *Schema, paths []string, id string) (Expression, error) {
	if len(paths) == 0 {
		return Expression{}, NewError(ErrInvalidProjection,
			"Invalid projection: at least one attribute must be requested")
	}
	resolved := make([][]pathSegment, 0, len(paths))
	for _, path := range paths {
		segments, _, err := resolvePath(schema, path)
		if err != nil {
			return Expression{}, NewError(ErrInvalidProjection,
				fmt.Sprintf("Invalid projection: %s", path),
				WithPath(path), WithCause(err))
		}
		resolved = append(resolved, segments)
	}

	p := newExpressionParser("p", id)
	parts := make([]string, 0, len(resolved))
	for i, segments := range resolved {
		if coveredPath(resolved, i) {
			continue
		}
		parts = append(parts, p.appendPath(segments))
	}
	p.write(strings.Join(parts, ", "))
	out := p.result()
	out.Values = nil
	return out, nil
}

// coveredPath reports whether resolved[i] is already projected by another
// path: an earlier equal path or any strict ancestor.
func coveredPath(resolved [][]pathSegment, i int) bool {
	for j, other := range resolved {
		if j == i || len(other) > len(resolved[i]) || !hasPathPrefix(resolved[i], other) {
			continue
		}
		if len(other) < len(resolved[i]) || j < i {
			return true
		}
	}
	return false
}

func hasPathPrefix(path, prefix []pathSegment) bool {
	for k := range prefix {
		if path[k] != prefix[k] {
			return false
		}
	}
	return true
}
