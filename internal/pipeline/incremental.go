package pipeline

import (
	"fmt"
	"strings"

	"github.com/shpitdev/packing-pipeline/pkg/pipeline/io/local"
)

// IncrementalPlan reuses successful rows from a prior output and deduplicates the rest,
// so each distinct pending request is planned once.
type IncrementalPlan struct {
	Rows    []Row
	Pending []local.Request

	CachedRows  int
	PendingRows int

	pendingIdx map[string][]int
	requests   []local.Request
}

// BuildIncrementalPlan matches requests against prior rows by request text.
func BuildIncrementalPlan(requests []local.Request, prior []Row) *IncrementalPlan {
	byKey := make(map[string]Row, len(prior))
	for _, row := range prior {
		if key := requestKey(row.Request); key != "" {
			byKey[key] = row
		}
	}

	plan := &IncrementalPlan{
		Rows:       make([]Row, len(requests)),
		pendingIdx: make(map[string][]int),
		requests:   requests,
	}
	for i, req := range requests {
		key := requestKey(req.Text)

		if prev, ok := byKey[key]; ok && key != "" && strings.EqualFold(strings.TrimSpace(prev.Status), StatusOK) {
			prev.ID = req.ID
			prev.Request = strings.TrimSpace(req.Text)
			plan.Rows[i] = prev
			plan.CachedRows++
			continue
		}

		if _, seen := plan.pendingIdx[key]; !seen {
			plan.Pending = append(plan.Pending, req)
		}
		plan.pendingIdx[key] = append(plan.pendingIdx[key], i)
		plan.PendingRows++
	}
	return plan
}

// Apply fills pending positions from rows planned for Pending, in Pending order.
func (p *IncrementalPlan) Apply(rows []Row) error {
	if len(rows) != len(p.Pending) {
		return fmt.Errorf("incremental plan mismatch: got %d rows for %d pending requests", len(rows), len(p.Pending))
	}
	for i, req := range p.Pending {
		idxs, ok := p.pendingIdx[requestKey(req.Text)]
		if !ok || len(idxs) == 0 {
			return fmt.Errorf("incremental plan mismatch: missing pending indexes for %q", req.Text)
		}
		for _, idx := range idxs {
			row := rows[i]
			row.ID = p.requests[idx].ID
			row.Request = strings.TrimSpace(p.requests[idx].Text)
			p.Rows[idx] = row
		}
	}
	return nil
}

func requestKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
