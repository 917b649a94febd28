// Package schema describes the column contracts of tabular pipeline inputs and outputs.
package schema

import (
	"fmt"
	"strings"
)

// Field captures the minimal behavior-relevant schema fields.
type Field struct {
	Name     string
	Type     string
	Nullable bool
}

// DatasetContract is the logical schema contract used by pipeline execution.
type DatasetContract struct {
	Fields []Field
}

// Columns returns the field names in contract order.
func (c DatasetContract) Columns() []string {
	out := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		out[i] = f.Name
	}
	return out
}

// Locate maps each contract field to its position in header. Matching ignores case and
// surrounding whitespace. Non-nullable fields must be present; absent nullable fields map to -1.
func (c DatasetContract) Locate(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(c.Fields))
	for _, f := range c.Fields {
		idx[f.Name] = -1
		for i, col := range header {
			if strings.EqualFold(strings.TrimSpace(col), f.Name) {
				idx[f.Name] = i
				break
			}
		}
		if idx[f.Name] < 0 && !f.Nullable {
			return nil, fmt.Errorf("missing required column %q", f.Name)
		}
	}
	return idx, nil
}
