package models

// Instance is one concrete occurrence of a vulnerability
type Instance struct {
	ID        int            `json:"id"`
	URL       string         `json:"url"`
	Method    string         `json:"method"`
	Parameter string         `json:"parameter"`
	Attack    string         `json:"attack"`
	Evidence  string         `json:"evidence"`
	OtherInfo string         `json:"other_info"`
	ExtraData map[string]any `json:"extra_data,omitempty"`
	FixStatus FixStatus      `json:"fix_status"`
	FixedAt   string         `json:"fixed_at"`
	FixedBy   string         `json:"fixed_by"`
	FixNotes  string         `json:"fix_notes"`
}

// Vulnerability is a finding type grouping one or more instances
type Vulnerability struct {
	ID            int        `json:"id"`
	Severity      Severity   `json:"severity"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	InstanceCount int        `json:"instance_count"`
	Instances     []Instance `json:"instances"`
}

// Count is the instance count shown for the vulnerability. Payloads that
// omit instance_count fall back to the number of embedded instances.
func (v Vulnerability) Count() int {
	if v.InstanceCount == 0 {
		return len(v.Instances)
	}
	return v.InstanceCount
}

// Report is an imported scan report with its findings
type Report struct {
	ID               int             `json:"id"`
	SiteURL          string          `json:"site_url"`
	FileName         string          `json:"file_name"`
	ImportedAt       string          `json:"imported_at"`
	Notes            string          `json:"notes"`
	SummarySequences string          `json:"summary_sequences"`
	SequenceDetails  string          `json:"sequence_details"`
	Stats            map[string]int  `json:"stats"`
	VulnCount        int             `json:"vuln_count"`
	Vulnerabilities  []Vulnerability `json:"vulnerabilities"`
}

// DisplayName returns the site URL, then the file name, then "unknown".
func (r *Report) DisplayName() string {
	return displayName(r.SiteURL, r.FileName)
}

// TotalInstances sums the instance counts of every vulnerability.
func (r *Report) TotalInstances() int {
	total := 0
	for _, v := range r.Vulnerabilities {
		total += v.Count()
	}
	return total
}

// FindInstance locates an instance and its owning vulnerability.
func (r *Report) FindInstance(id int) (*Instance, *Vulnerability, bool) {
	for vi := range r.Vulnerabilities {
		v := &r.Vulnerabilities[vi]
		for ii := range v.Instances {
			if v.Instances[ii].ID == id {
				return &v.Instances[ii], v, true
			}
		}
	}
	return nil, nil, false
}

// ReportSummary is a report as it appears in list and dashboard payloads
type ReportSummary struct {
	ID         int            `json:"id"`
	SiteURL    string         `json:"site_url"`
	FileName   string         `json:"file_name"`
	ImportedAt string         `json:"imported_at"`
	Notes      string         `json:"notes"`
	Stats      map[string]int `json:"stats"`
	VulnCount  int            `json:"vuln_count"`
}

// DisplayName returns the site URL, then the file name, then "unknown".
func (r ReportSummary) DisplayName() string {
	return displayName(r.SiteURL, r.FileName)
}

func displayName(site, file string) string {
	switch {
	case site != "":
		return site
	case file != "":
		return file
	default:
		return "unknown"
	}
}
