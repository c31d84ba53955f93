package printer

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/velocityfibre/fibrefield/internal/models"
)

// GenerateCompletionReportPDF renders a one-page summary of a completed
// capture suitable for handing to the customer or archiving.
func GenerateCompletionReportPDF(c *models.Capture) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Home Drop Installation Report", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)

	row := func(label, value string) {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 7, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 7, value, "", 1, "L", false, 0, "")
	}

	row("Capture ID", c.ID)
	row("Pole Number", c.PoleNumber)
	row("Project", c.ProjectID)
	row("Technician", c.TechnicianID)
	row("Customer", c.CustomerName)
	row("Address", c.CustomerAddress)
	row("Status", string(c.Status))
	row("Approval", string(c.ApprovalStatus))

	if c.HasLocation() {
		row("Location", fmt.Sprintf("%.6f, %.6f", *c.Latitude, *c.Longitude))
	}
	if c.Accuracy != nil {
		row("GPS Accuracy", fmt.Sprintf("%.1f m", *c.Accuracy))
	}
	if c.DistanceFromPole != nil {
		row("Distance to Pole", fmt.Sprintf("%.1f m", *c.DistanceFromPole))
	}
	if c.OpticalPowerDBm != nil {
		row("Optical Power", fmt.Sprintf("%.1f dBm", *c.OpticalPowerDBm))
	}
	if c.SubmittedAt != nil {
		row("Submitted", c.SubmittedAt.Format("2006-01-02 15:04"))
	}
	if c.ApprovedAt != nil {
		row("Approved", fmt.Sprintf("%s by %s", c.ApprovedAt.Format("2006-01-02 15:04"), c.ApprovedBy))
	}

	if len(c.Photos) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Photos", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		for _, p := range c.Photos {
			pdf.CellFormat(0, 6, fmt.Sprintf("%s  -  %s (%.0f KB)", p.Type, p.TakenAt.Format("2006-01-02 15:04"), float64(p.SizeBytes)/1024), "", 1, "L", false, 0, "")
		}
	}

	if c.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 8, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 9)
		pdf.MultiCell(0, 5, c.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
