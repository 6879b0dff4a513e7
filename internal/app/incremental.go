package app

import (
	"fmt"
	"strings"

	"github.com/get-rishabh/AutoLeads-Assignment/internal/profile"
)

// incrementalPlan maps the input URLs onto cached records and the positions that
// still need scraping. Input order is preserved throughout.
type incrementalPlan struct {
	records     []profile.Record
	done        []bool
	pendingURLs []string
	pendingIdx  []int
	cachedRows  int
}

func buildIncrementalPlan(inputURLs []string, existingByURL map[string]profile.Record) incrementalPlan {
	plan := incrementalPlan{
		records: make([]profile.Record, len(inputURLs)),
		done:    make([]bool, len(inputURLs)),
	}
	for i, raw := range inputURLs {
		url := strings.TrimSpace(raw)
		if prev, ok := existingByURL[url]; ok && prev.Success {
			prev.ProfileURL = url
			plan.records[i] = prev
			plan.done[i] = true
			plan.cachedRows++
			continue
		}
		plan.pendingURLs = append(plan.pendingURLs, url)
		plan.pendingIdx = append(plan.pendingIdx, i)
	}
	return plan
}

// applyScraped places fresh records, in pending order. Fewer records than pending
// URLs is allowed for a cancelled run.
func (p *incrementalPlan) applyScraped(records []profile.Record) error {
	if len(records) > len(p.pendingURLs) {
		return fmt.Errorf("incremental scrape mismatch: got %d records for %d pending urls", len(records), len(p.pendingURLs))
	}
	for i, rec := range records {
		idx := p.pendingIdx[i]
		p.records[idx] = rec
		p.done[idx] = true
	}
	return nil
}

// completed returns the records that are filled, in input order.
func (p *incrementalPlan) completed() []profile.Record {
	out := make([]profile.Record, 0, len(p.records))
	for i, rec := range p.records {
		if p.done[i] {
			out = append(out, rec)
		}
	}
	return out
}
