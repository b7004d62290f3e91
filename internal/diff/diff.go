// Package diff computes the delta between two imported reports of the same
// site: findings that appeared, findings that disappeared, and findings
// whose fix status moved.
package diff

import (
	"context"
	"fmt"
	"sort"

	"github.com/hakim/vulntriage/internal/models"
	"github.com/sourcegraph/conc/pool"
)

// Finding is one instance flattened together with its vulnerability.
type Finding struct {
	InstanceID int
	Severity   models.Severity
	Title      string
	URL        string
	Method     string
	Parameter  string
	Status     models.FixStatus
}

// StatusChange is a finding present in both reports with a different status.
type StatusChange struct {
	Finding Finding
	From    models.FixStatus
	To      models.FixStatus
}

// ReportRef names one side of the comparison.
type ReportRef struct {
	ID   int
	Name string
}

// DiffResult holds the complete delta between a current and a previous
// report. All slice fields are non-nil (empty slices, not nil) so callers
// can range over them unconditionally.
type DiffResult struct {
	Current  ReportRef
	Previous ReportRef

	NewFindings      []Finding
	ResolvedFindings []Finding
	StatusChanges    []StatusChange
	Unchanged        int

	// Summary counts (convenient for rendering without re-iterating slices)
	CurrentCount     int
	PreviousCount    int
	CurrentSeverity  map[models.Severity]int
	PreviousSeverity map[models.Severity]int
}

// Empty reports whether nothing changed between the two reports.
func (d *DiffResult) Empty() bool {
	return len(d.NewFindings) == 0 && len(d.ResolvedFindings) == 0 && len(d.StatusChanges) == 0
}

// Fetcher loads full reports.
type Fetcher interface {
	GetReport(ctx context.Context, id int) (*models.Report, error)
}

// Fetch loads both reports concurrently. The first failure cancels the
// other request.
func Fetch(ctx context.Context, f Fetcher, currentID, previousID int) (current, previous *models.Report, err error) {
	p := pool.New().WithContext(ctx).WithCancelOnError()

	p.Go(func(ctx context.Context) error {
		r, err := f.GetReport(ctx, currentID)
		if err != nil {
			return fmt.Errorf("fetching report %d: %w", currentID, err)
		}
		current = r
		return nil
	})
	p.Go(func(ctx context.Context) error {
		r, err := f.GetReport(ctx, previousID)
		if err != nil {
			return fmt.Errorf("fetching report %d: %w", previousID, err)
		}
		previous = r
		return nil
	})

	if err := p.Wait(); err != nil {
		return nil, nil, err
	}
	return current, previous, nil
}

// Flatten lists every instance of r as a finding, in report order.
func Flatten(r *models.Report) []Finding {
	if r == nil {
		return []Finding{}
	}
	out := make([]Finding, 0, r.TotalInstances())
	for _, v := range r.Vulnerabilities {
		for _, inst := range v.Instances {
			out = append(out, Finding{
				InstanceID: inst.ID,
				Severity:   v.Severity,
				Title:      v.Title,
				URL:        inst.URL,
				Method:     inst.Method,
				Parameter:  inst.Parameter,
				Status:     inst.FixStatus,
			})
		}
	}
	return out
}

// findingKey identifies the same finding across two imports. Instance ids
// are per import and cannot be compared.
// Format: "severity::title::url::method::parameter"
func findingKey(f Finding) string {
	return fmt.Sprintf("%s::%s::%s::%s::%s", f.Severity, f.Title, f.URL, f.Method, f.Parameter)
}

// ComputeDiff calculates the delta between current and previous. Either may
// be nil, which is treated as an empty report.
func ComputeDiff(current, previous *models.Report) *DiffResult {
	dr := &DiffResult{
		NewFindings:      []Finding{},
		ResolvedFindings: []Finding{},
		StatusChanges:    []StatusChange{},
		CurrentSeverity:  map[models.Severity]int{},
		PreviousSeverity: map[models.Severity]int{},
	}
	if current != nil {
		dr.Current = ReportRef{ID: current.ID, Name: current.DisplayName()}
	}
	if previous != nil {
		dr.Previous = ReportRef{ID: previous.ID, Name: previous.DisplayName()}
	}

	currFlat := Flatten(current)
	prevFlat := Flatten(previous)
	for _, f := range currFlat {
		dr.CurrentSeverity[f.Severity]++
	}
	for _, f := range prevFlat {
		dr.PreviousSeverity[f.Severity]++
	}
	dr.CurrentCount = len(currFlat)
	dr.PreviousCount = len(prevFlat)

	curr := index(currFlat)
	prev := index(prevFlat)

	for key, f := range curr {
		old, existed := prev[key]
		switch {
		case !existed:
			dr.NewFindings = append(dr.NewFindings, f)
		case old.Status != f.Status:
			dr.StatusChanges = append(dr.StatusChanges, StatusChange{Finding: f, From: old.Status, To: f.Status})
		default:
			dr.Unchanged++
		}
	}

	for key, f := range prev {
		if _, exists := curr[key]; !exists {
			dr.ResolvedFindings = append(dr.ResolvedFindings, f)
		}
	}

	sortFindings(dr.NewFindings)
	sortFindings(dr.ResolvedFindings)
	sort.SliceStable(dr.StatusChanges, func(i, j int) bool {
		return less(dr.StatusChanges[i].Finding, dr.StatusChanges[j].Finding)
	})

	return dr
}

// index keys findings; duplicates of a key keep the first occurrence.
func index(findings []Finding) map[string]Finding {
	m := make(map[string]Finding, len(findings))
	for _, f := range findings {
		key := findingKey(f)
		if _, seen := m[key]; !seen {
			m[key] = f
		}
	}
	return m
}

// sortFindings orders most severe first, then by title and URL.
func sortFindings(fs []Finding) {
	sort.SliceStable(fs, func(i, j int) bool { return less(fs[i], fs[j]) })
}

func less(a, b Finding) bool {
	if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
		return ra < rb
	}
	if a.Title != b.Title {
		return a.Title < b.Title
	}
	if a.URL != b.URL {
		return a.URL < b.URL
	}
	return findingKey(a) < findingKey(b)
}
