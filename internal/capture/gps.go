package capture

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/velocityfibre/fibrefield/internal/models"
)

const earthRadiusM = 6371000.0

// Haversine returns the great-circle distance in meters between two points
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// Coordinates is a GPS fix supplied by the field device
type Coordinates struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Altitude  *float64   `json:"altitude,omitempty"`
	Accuracy  *float64   `json:"accuracy,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// UpdateLocation stores a GPS fix on the capture and recomputes
// distanceFromPole when the pole also has a surveyed location.
// Quality violations (poor accuracy, excessive distance) never fail the
// call; they only clear the corresponding validated flags and log
// warnings, so the technician can keep working and fix GPS later.
func (s *Service) UpdateLocation(id string, coords Coordinates) (*models.Capture, error) {
	if coords.Latitude == nil || coords.Longitude == nil {
		return nil, NewValidationError("latitude and longitude are required")
	}

	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	c.Latitude = coords.Latitude
	c.Longitude = coords.Longitude
	c.Altitude = coords.Altitude
	c.Accuracy = coords.Accuracy
	if coords.Timestamp != nil {
		c.GPSTimestamp = coords.Timestamp
	} else {
		now := s.now()
		c.GPSTimestamp = &now
	}

	// Accuracy threshold is inclusive: exactly at the limit is valid
	c.GPSValidated = coords.Accuracy != nil && *coords.Accuracy <= s.gps.AccuracyThresholdM
	if !c.GPSValidated {
		log.Printf("⚠️ [GPS] %s accuracy outside threshold (%v > %.0fm)", id, deref(coords.Accuracy), s.gps.AccuracyThresholdM)
	}

	c.DistanceFromPole = nil
	c.ProximityValidated = false
	pole, perr := s.Pole(c.PoleNumber)
	if perr == nil && pole.HasLocation() {
		d := Haversine(*c.Latitude, *c.Longitude, *pole.Latitude, *pole.Longitude)
		c.DistanceFromPole = &d
		c.ProximityValidated = d <= s.gps.MaxDistanceFromPole
		if !c.ProximityValidated {
			log.Printf("⚠️ [GPS] %s is %.0fm from pole %s (max %.0fm)", id, d, c.PoleNumber, s.gps.MaxDistanceFromPole)
		}
	}

	c.UpdatedAt = s.now()
	if err := s.db.Save(c).Error; err != nil {
		return nil, fmt.Errorf("failed to save GPS location for %s: %w", id, err)
	}
	return c, nil
}

// ValidateGPS checks a capture's GPS state for submission readiness.
// Missing or null-island coordinates and excessive distance are hard
// errors; poor accuracy is only a warning.
func (s *Service) ValidateGPS(id string) (*ValidationResult, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	res := &ValidationResult{Valid: true}

	if !c.HasLocation() {
		res.Valid = false
		res.Errors = append(res.Errors, "GPS location has not been captured")
		return res, nil
	}
	if *c.Latitude == 0 && *c.Longitude == 0 {
		res.Valid = false
		res.Errors = append(res.Errors, "GPS coordinates are (0,0)")
		return res, nil
	}

	if c.DistanceFromPole != nil && *c.DistanceFromPole > s.gps.MaxDistanceFromPole {
		res.Valid = false
		res.Errors = append(res.Errors,
			fmt.Sprintf("capture is %.0fm from pole %s, maximum is %.0fm",
				*c.DistanceFromPole, c.PoleNumber, s.gps.MaxDistanceFromPole))
	}

	if c.Accuracy == nil {
		res.Warnings = append(res.Warnings, "GPS accuracy was not reported")
	} else if *c.Accuracy > s.gps.AccuracyThresholdM {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("GPS accuracy %.0fm exceeds the %.0fm threshold",
				*c.Accuracy, s.gps.AccuracyThresholdM))
	}

	return res, nil
}

// NearbyCapture pairs a capture with its distance from a reference point
type NearbyCapture struct {
	Capture  models.Capture `json:"capture"`
	Distance float64        `json:"distanceM"`
}

// NearbyCaptures returns captures within radius meters of a point,
// sorted nearest first
func (s *Service) NearbyCaptures(lat, lon, radiusM float64) ([]NearbyCapture, error) {
	captures, err := s.List()
	if err != nil {
		return nil, err
	}

	var nearby []NearbyCapture
	for _, c := range captures {
		if !c.HasLocation() {
			continue
		}
		d := Haversine(lat, lon, *c.Latitude, *c.Longitude)
		if d <= radiusM {
			nearby = append(nearby, NearbyCapture{Capture: c, Distance: d})
		}
	}

	sort.Slice(nearby, func(i, j int) bool {
		return nearby[i].Distance < nearby[j].Distance
	})
	return nearby, nil
}

// DuplicatePair flags two captures recorded at effectively the same spot
type DuplicatePair struct {
	CaptureID      string  `json:"captureId"`
	OtherCaptureID string  `json:"otherCaptureId"`
	Distance       float64 `json:"distanceM"`
}

// FindDuplicateLocations detects capture pairs within the configured
// duplicate tolerance of each other
func (s *Service) FindDuplicateLocations() ([]DuplicatePair, error) {
	captures, err := s.List()
	if err != nil {
		return nil, err
	}

	var located []models.Capture
	for _, c := range captures {
		if c.HasLocation() {
			located = append(located, c)
		}
	}

	var pairs []DuplicatePair
	for i := 0; i < len(located); i++ {
		for j := i + 1; j < len(located); j++ {
			d := Haversine(*located[i].Latitude, *located[i].Longitude,
				*located[j].Latitude, *located[j].Longitude)
			if d <= s.gps.DuplicateToleranceM {
				pairs = append(pairs, DuplicatePair{
					CaptureID:      located[i].ID,
					OtherCaptureID: located[j].ID,
					Distance:       d,
				})
			}
		}
	}
	return pairs, nil
}

// GPSQuality is a 0-100 score combining accuracy and distance penalties
type GPSQuality struct {
	Score           int      `json:"score"`
	Recommendations []string `json:"recommendations"`
}

// QualityScore rates a capture's GPS fix. Accuracy contributes up to 60
// points, pole proximity up to 40; recommendations name what to improve.
func (s *Service) QualityScore(id string) (*GPSQuality, error) {
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	q := &GPSQuality{}

	if !c.HasLocation() {
		q.Recommendations = append(q.Recommendations, "Capture a GPS location before scoring")
		return q, nil
	}

	// Accuracy: full marks at or under threshold, linear falloff to 3x
	acc := 60.0
	if c.Accuracy != nil && *c.Accuracy > s.gps.AccuracyThresholdM {
		over := *c.Accuracy - s.gps.AccuracyThresholdM
		span := s.gps.AccuracyThresholdM * 2
		acc = 60 * (1 - math.Min(over/span, 1))
		q.Recommendations = append(q.Recommendations,
			"Wait for a better GPS fix in open sky before capturing")
	} else if c.Accuracy == nil {
		acc = 30
		q.Recommendations = append(q.Recommendations, "Device did not report GPS accuracy")
	}

	// Proximity: full marks within max distance, zero at 2x
	prox := 40.0
	if c.DistanceFromPole == nil {
		prox = 20
		q.Recommendations = append(q.Recommendations, "Pole has no surveyed location to compare against")
	} else if *c.DistanceFromPole > s.gps.MaxDistanceFromPole {
		over := *c.DistanceFromPole - s.gps.MaxDistanceFromPole
		prox = 40 * (1 - math.Min(over/s.gps.MaxDistanceFromPole, 1))
		q.Recommendations = append(q.Recommendations,
			fmt.Sprintf("Verify the capture is assigned to the right pole (%.0fm away)", *c.DistanceFromPole))
	}

	q.Score = int(math.Round(acc + prox))
	if q.Score > 100 {
		q.Score = 100
	}
	return q, nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
