package view

import "github.com/hakim/vulntriage/internal/models"

// Field is one labelled line of the detail panel
type Field struct {
	Label string
	Value string
	Code  bool // render preformatted
}

// Detail is the panel shown for the active instance
type Detail struct {
	InstanceID  int
	Severity    models.Severity
	Status      models.FixStatus
	Title       string
	Description string
	Fields      []Field
}

// InstanceDetail builds the panel for instanceID. Empty fields are left out
// entirely. It reports false when the instance is not in the report.
func InstanceDetail(r *models.Report, instanceID int) (Detail, bool) {
	if r == nil {
		return Detail{}, false
	}
	inst, vuln, ok := r.FindInstance(instanceID)
	if !ok {
		return Detail{}, false
	}

	d := Detail{
		InstanceID:  inst.ID,
		Severity:    vuln.Severity,
		Status:      inst.FixStatus,
		Title:       vuln.Title,
		Description: vuln.Description,
	}

	fixedAt := inst.FixedAt
	if fixedAt != "" {
		fixedAt = FormatDate(fixedAt)
	}

	candidates := []Field{
		{Label: "URL", Value: inst.URL},
		{Label: "Method", Value: inst.Method},
		{Label: "Parameter", Value: inst.Parameter},
		{Label: "Attack", Value: inst.Attack, Code: true},
		{Label: "Evidence", Value: inst.Evidence, Code: true},
		{Label: "Other info", Value: inst.OtherInfo},
		{Label: "Fix notes", Value: inst.FixNotes},
		{Label: "Fixed by", Value: inst.FixedBy},
		{Label: "Fixed at", Value: fixedAt},
	}
	for _, f := range candidates {
		if f.Value != "" {
			d.Fields = append(d.Fields, f)
		}
	}

	return d, true
}

// StatusForm is the prefilled single-instance status modal
type StatusForm struct {
	InstanceID int
	Title      string
	URL        string
	Status     models.FixStatus
	FixedBy    string
	Notes      string
	Options    []StatusOption
}

// StatusOption is one choice of the status select
type StatusOption struct {
	Value    models.FixStatus
	Label    string
	Selected bool
}

// NewStatusForm prefills the modal from the instance's current values.
func NewStatusForm(r *models.Report, instanceID int) (StatusForm, bool) {
	if r == nil {
		return StatusForm{}, false
	}
	inst, vuln, ok := r.FindInstance(instanceID)
	if !ok {
		return StatusForm{}, false
	}

	current := inst.FixStatus
	if !current.Known() {
		current = models.StatusPending
	}

	form := StatusForm{
		InstanceID: inst.ID,
		Title:      vuln.Title,
		URL:        inst.URL,
		Status:     current,
		FixedBy:    inst.FixedBy,
		Notes:      inst.FixNotes,
	}
	form.Options = StatusOptions(current)
	return form, true
}

// StatusOptions lists every status, marking selected as chosen.
func StatusOptions(selected models.FixStatus) []StatusOption {
	opts := make([]StatusOption, 0, len(models.FixStatuses))
	for _, s := range models.FixStatuses {
		opts = append(opts, StatusOption{Value: s, Label: s.Emoji() + " " + s.Label(), Selected: s == selected})
	}
	return opts
}
