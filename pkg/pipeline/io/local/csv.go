// Package local reads pipeline inputs from local files.
package local

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shpitdev/packing-pipeline/pkg/pipeline/schema"
)

// Request is one batch input row.
type Request struct {
	// ID is the optional "id" column; empty when the column is absent.
	ID   string
	Text string
}

// RequestContract is the input schema for batch planning.
var RequestContract = schema.DatasetContract{Fields: []schema.Field{
	{Name: "request", Type: "string"},
	{Name: "id", Type: "string", Nullable: true},
}}

// ReadRequestsCSV reads a CSV file and returns the travel requests from the "request" column.
// Blank requests are kept: each input row yields one output row.
func ReadRequestsCSV(r io.Reader) ([]Request, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx, err := RequestContract.Locate(header)
	if err != nil {
		return nil, err
	}
	reqIdx, idIdx := idx["request"], idx["id"]

	var out []Request
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if reqIdx >= len(rec) {
			return nil, fmt.Errorf("row has %d columns, want at least %d", len(rec), reqIdx+1)
		}
		req := Request{Text: strings.TrimSpace(rec[reqIdx])}
		if idIdx >= 0 && idIdx < len(rec) {
			req.ID = strings.TrimSpace(rec[idIdx])
		}
		out = append(out, req)
	}
	return out, nil
}
