package view

import (
	"math"

	"github.com/hakim/vulntriage/internal/models"
)

// RingRadius is the radius of the fix-progress ring.
const RingRadius = 40

// Counter is one of the headline numbers
type Counter struct {
	Label   string
	Value   int
	Display string
}

// Bar is one severity bar, Percent in [0, 100]
type Bar struct {
	Severity models.Severity
	Count    int
	Percent  float64
}

// RingSegment is one arc of the fix-progress ring. Offset is the
// stroke-dashoffset that starts the arc after the previous ones.
type RingSegment struct {
	Status models.FixStatus
	Count  int
	Length float64
	Offset float64
}

// Ring is the three-segment fix-progress chart
type Ring struct {
	Circumference float64
	Segments      []RingSegment
	FixedPercent  int
}

// Badge is a per-severity count chip
type Badge struct {
	Severity models.Severity
	Count    int
	Text     string
}

// RecentItem is one row of the recent reports list
type RecentItem struct {
	ID       int
	Site     string
	Imported string
	Badges   []Badge
}

// Dashboard is the render model of the dashboard page
type Dashboard struct {
	Counters []Counter
	Bars     []Bar
	Ring     Ring
	Recent   []RecentItem
}

// BuildDashboard aggregates stats for rendering. recentLimit caps the
// recent reports list; zero or less keeps them all.
func BuildDashboard(stats *models.DashboardStats, recentLimit int) Dashboard {
	if stats == nil {
		stats = &models.DashboardStats{}
	}

	d := Dashboard{
		Counters: []Counter{
			counter("Reports", stats.TotalReports),
			counter("Vulnerabilities", stats.TotalVulnerabilities),
			counter("Instances", stats.TotalInstances),
			counter("Fixed", stats.StatusStats[string(models.StatusFixed)]),
		},
		Bars: SeverityBars(stats.SeverityStats),
		Ring: FixRing(stats.StatusStats),
	}

	recent := stats.RecentReports
	if recentLimit > 0 && len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}
	for _, r := range recent {
		d.Recent = append(d.Recent, RecentItem{
			ID:       r.ID,
			Site:     r.DisplayName(),
			Imported: FormatDate(r.ImportedAt),
			Badges:   Badges(r.Stats, false),
		})
	}

	return d
}

func counter(label string, v int) Counter {
	return Counter{Label: label, Value: v, Display: FormatCount(v)}
}

// SeverityBars computes one bar per severity as a share of the four
// severities' total; every bar is 0 when the total is 0.
func SeverityBars(stats map[string]int) []Bar {
	total := 0
	for _, s := range models.SeverityOrder {
		total += stats[string(s)]
	}

	bars := make([]Bar, 0, len(models.SeverityOrder))
	for _, s := range models.SeverityOrder {
		n := stats[string(s)]
		bars = append(bars, Bar{Severity: s, Count: n, Percent: Percent(n, total)})
	}
	return bars
}

// FixRing computes the fixed / in-progress / pending arcs against the
// "total" entry of stats, which is treated as 1 when missing or zero.
func FixRing(stats map[string]int) Ring {
	total := stats["total"]
	if total <= 0 {
		total = 1
	}
	circumference := 2 * math.Pi * RingRadius

	fixed := stats[string(models.StatusFixed)]
	progress := stats[string(models.StatusInProgress)]
	pending := stats[string(models.StatusPending)]

	fixedLen := float64(fixed) / float64(total) * circumference
	progressLen := float64(progress) / float64(total) * circumference
	pendingLen := float64(pending) / float64(total) * circumference

	return Ring{
		Circumference: circumference,
		Segments: []RingSegment{
			{Status: models.StatusFixed, Count: fixed, Length: fixedLen, Offset: 0},
			{Status: models.StatusInProgress, Count: progress, Length: progressLen, Offset: -fixedLen},
			{Status: models.StatusPending, Count: pending, Length: pendingLen, Offset: -(fixedLen + progressLen)},
		},
		FixedPercent: int(math.Round(float64(fixed) / float64(total) * 100)),
	}
}

// Badges returns a chip per severity with a non-zero count. Long badges
// carry the short severity name, short ones only the number.
func Badges(stats map[string]int, long bool) []Badge {
	var out []Badge
	for _, s := range models.SeverityOrder {
		n := stats[string(s)]
		if n == 0 {
			continue
		}
		text := FormatCount(n)
		if long {
			text = s.Short() + ": " + text
		}
		out = append(out, Badge{Severity: s, Count: n, Text: text})
	}
	return out
}
