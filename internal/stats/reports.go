package stats

import (
	"log"
	"sort"
	"time"

	"github.com/velocityfibre/fibrefield/internal/models"
)

// TechnicianEntry is one row of the technician leaderboard
type TechnicianEntry struct {
	TechnicianID string  `json:"technicianId"`
	Captures     int     `json:"captures"`
	Completed    int     `json:"completed"`
	Approved     int     `json:"approved"`
	Rejected     int     `json:"rejected"`
	ApprovalRate float64 `json:"approvalRatePct"`
}

// Leaderboard ranks technicians by completed captures, then approvals
func (s *Service) Leaderboard() []TechnicianEntry {
	captures, err := s.all()
	if err != nil {
		log.Printf("⚠️ [Stats] Leaderboard degraded to empty: %v", err)
		return nil
	}

	byTech := make(map[string]*TechnicianEntry)
	for _, c := range captures {
		if c.TechnicianID == "" {
			continue
		}
		e, ok := byTech[c.TechnicianID]
		if !ok {
			e = &TechnicianEntry{TechnicianID: c.TechnicianID}
			byTech[c.TechnicianID] = e
		}
		e.Captures++
		if c.Status == models.CaptureStatusCompleted {
			e.Completed++
		}
		switch c.ApprovalStatus {
		case models.ApprovalStatusApproved:
			e.Approved++
		case models.ApprovalStatusRejected:
			e.Rejected++
		}
	}

	out := make([]TechnicianEntry, 0, len(byTech))
	for _, e := range byTech {
		reviewed := e.Approved + e.Rejected
		if reviewed > 0 {
			e.ApprovalRate = 100 * float64(e.Approved) / float64(reviewed)
		}
		out = append(out, *e)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Completed != out[j].Completed {
			return out[i].Completed > out[j].Completed
		}
		if out[i].Approved != out[j].Approved {
			return out[i].Approved > out[j].Approved
		}
		return out[i].TechnicianID < out[j].TechnicianID
	})
	return out
}

// DailySummary is the per-day activity report
type DailySummary struct {
	Date      string `json:"date"`
	Created   int    `json:"created"`
	Completed int    `json:"completed"`
	Submitted int    `json:"submitted"`
	Approved  int    `json:"approved"`
}

// Daily groups activity per calendar day over the trailing window
func (s *Service) Daily(days int) []DailySummary {
	if days <= 0 {
		days = 7
	}
	captures, err := s.all()
	if err != nil {
		log.Printf("⚠️ [Stats] Daily report degraded to empty: %v", err)
		return nil
	}

	cutoff := s.now().AddDate(0, 0, -days)
	byDay := make(map[string]*DailySummary)
	day := func(t time.Time) *DailySummary {
		key := t.Format("2006-01-02")
		d, ok := byDay[key]
		if !ok {
			d = &DailySummary{Date: key}
			byDay[key] = d
		}
		return d
	}

	for _, c := range captures {
		if c.CreatedAt.After(cutoff) {
			day(c.CreatedAt).Created++
		}
		if c.Status == models.CaptureStatusCompleted && c.UpdatedAt.After(cutoff) {
			day(c.UpdatedAt).Completed++
		}
		if c.SubmittedAt != nil && c.SubmittedAt.After(cutoff) {
			day(*c.SubmittedAt).Submitted++
		}
		if c.ApprovedAt != nil && c.ApprovedAt.After(cutoff) {
			day(*c.ApprovedAt).Approved++
		}
	}

	out := make([]DailySummary, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// ProductivityReport blends throughput, quality and sync health
type ProductivityReport struct {
	Summary        *Summary          `json:"summary"`
	Leaderboard    []TechnicianEntry `json:"leaderboard"`
	Daily          []DailySummary    `json:"daily"`
	SyncHealthPct  float64           `json:"syncHealthPct"`
	ApprovedShare  float64           `json:"approvedSharePct"`
	RejectionShare float64           `json:"rejectionSharePct"`
}

// Productivity assembles the combined report
func (s *Service) Productivity() *ProductivityReport {
	summary := s.Summary()
	rep := &ProductivityReport{
		Summary:     summary,
		Leaderboard: s.Leaderboard(),
		Daily:       s.Daily(7),
	}

	if summary.Total > 0 {
		rep.SyncHealthPct = 100 * float64(summary.BySyncStatus[models.SyncStateSynced]) / float64(summary.Total)
	}

	captures, err := s.all()
	if err != nil {
		return rep
	}
	var approved, rejected, reviewed int
	for _, c := range captures {
		switch c.ApprovalStatus {
		case models.ApprovalStatusApproved:
			approved++
			reviewed++
		case models.ApprovalStatusRejected:
			rejected++
			reviewed++
		}
	}
	if reviewed > 0 {
		rep.ApprovedShare = 100 * float64(approved) / float64(reviewed)
		rep.RejectionShare = 100 * float64(rejected) / float64(reviewed)
	}
	return rep
}
