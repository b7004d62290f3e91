package report

import (
	"sort"

	"github.com/hakim/vulntriage/internal/models"
	"github.com/hakim/vulntriage/internal/view"
)

// severityCounts sums instance counts per severity.
func severityCounts(r *models.Report) map[models.Severity]int {
	counts := make(map[models.Severity]int)
	for _, v := range r.Vulnerabilities {
		counts[v.Severity] += v.Count()
	}
	return counts
}

// statusCounts counts embedded instances per fix status.
func statusCounts(r *models.Report) map[models.FixStatus]int {
	counts := make(map[models.FixStatus]int)
	for _, v := range r.Vulnerabilities {
		for _, inst := range v.Instances {
			counts[inst.FixStatus]++
		}
	}
	return counts
}

// orderedStatuses lists the keys of counts: known statuses in the order
// offered to users, then anything else alphabetically.
func orderedStatuses(counts map[models.FixStatus]int) []models.FixStatus {
	out := make([]models.FixStatus, 0, len(counts))
	for _, s := range models.FixStatuses {
		if counts[s] > 0 {
			out = append(out, s)
		}
	}

	var unknown []models.FixStatus
	for s, n := range counts {
		if !s.Known() && n > 0 {
			unknown = append(unknown, s)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })

	return append(out, unknown...)
}

// vulnsByNode indexes vulnerabilities by their tree node id.
func vulnsByNode(r *models.Report) map[string]*models.Vulnerability {
	out := make(map[string]*models.Vulnerability, len(r.Vulnerabilities))
	for i := range r.Vulnerabilities {
		v := &r.Vulnerabilities[i]
		out[view.VulnNodeID(v.ID)] = v
	}
	return out
}
