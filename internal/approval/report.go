package approval

import (
	"math"

	"github.com/velocityfibre/fibrefield/internal/models"
)

// Stats aggregates approval outcomes across the capture collection
type Stats struct {
	Pending             int64   `json:"pending"`
	Approved            int64   `json:"approved"`
	Rejected            int64   `json:"rejected"`
	MeanApprovalHours   float64 `json:"meanApprovalHours"`
	ApprovalSampleCount int     `json:"approvalSampleCount"`
}

// Stats computes counts by approval status and the mean submit-to-approve
// latency in hours
func (s *Service) Stats() (*Stats, error) {
	out := &Stats{}

	counts := []struct {
		status models.ApprovalStatus
		dest   *int64
	}{
		{models.ApprovalStatusPending, &out.Pending},
		{models.ApprovalStatusApproved, &out.Approved},
		{models.ApprovalStatusRejected, &out.Rejected},
	}
	for _, c := range counts {
		if err := s.db.Model(&models.Capture{}).
			Where("approval_status = ?", c.status).
			Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	var approved []models.Capture
	if err := s.db.Where("approval_status = ? AND submitted_at IS NOT NULL AND approved_at IS NOT NULL",
		models.ApprovalStatusApproved).Find(&approved).Error; err != nil {
		return nil, err
	}
	var totalHours float64
	for _, c := range approved {
		totalHours += c.ApprovedAt.Sub(*c.SubmittedAt).Hours()
	}
	if len(approved) > 0 {
		out.MeanApprovalHours = totalHours / float64(len(approved))
		out.ApprovalSampleCount = len(approved)
	}
	return out, nil
}

// QualityReport scores one capture 0-100: photo completeness 30%, field
// completeness 30%, GPS accuracy 20%, validation compliance 20%.
type QualityReport struct {
	CaptureID       string  `json:"captureId"`
	Score           int     `json:"score"`
	PhotoScore      float64 `json:"photoScore"`
	FieldScore      float64 `json:"fieldScore"`
	GPSScore        float64 `json:"gpsScore"`
	ComplianceScore float64 `json:"complianceScore"`
}

// QualityReport builds the blended quality score for a capture
func (s *Service) QualityReport(id string) (*QualityReport, error) {
	c, err := s.captures.Get(id)
	if err != nil {
		return nil, err
	}

	comp, err := s.photos.Completion(id)
	if err != nil {
		return nil, err
	}

	r := &QualityReport{CaptureID: id}

	// Photos: fraction of the required set present
	if len(comp.Required) > 0 {
		r.PhotoScore = 30 * float64(len(comp.Completed)) / float64(len(comp.Required))
	}

	// Fields: customer + installation completeness
	fields := 0.0
	total := 6.0
	if c.CustomerName != "" {
		fields++
	}
	if c.CustomerAddress != "" {
		fields++
	}
	if c.CustomerContact != "" {
		fields++
	}
	if len(c.Equipment) > 0 {
		fields++
	}
	if c.OpticalPowerDBm != nil {
		fields++
	}
	if c.ActivationStatus != "" {
		fields++
	}
	r.FieldScore = 30 * fields / total

	// GPS: degrade with accuracy beyond the threshold
	if c.HasLocation() {
		r.GPSScore = 20
		if c.Accuracy != nil && *c.Accuracy > s.gps.AccuracyThresholdM {
			over := *c.Accuracy - s.gps.AccuracyThresholdM
			r.GPSScore = 20 * (1 - math.Min(over/(2*s.gps.AccuracyThresholdM), 1))
		}
	}

	// Compliance: hard validation findings each cost a share
	missing := comp.Missing
	v := s.Validate(c, missing)
	if len(v.Errors) == 0 {
		r.ComplianceScore = 20
	} else {
		r.ComplianceScore = math.Max(0, 20-5*float64(len(v.Errors)))
	}

	r.Score = int(math.Round(r.PhotoScore + r.FieldScore + r.GPSScore + r.ComplianceScore))
	if r.Score > 100 {
		r.Score = 100
	}
	return r, nil
}
