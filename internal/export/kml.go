package export

import (
	"encoding/xml"
	"fmt"

	"github.com/velocityfibre/fibrefield/internal/models"
)

type kmlDocument struct {
	XMLName    xml.Name       `xml:"kml"`
	Xmlns      string         `xml:"xmlns,attr"`
	Name       string         `xml:"Document>name"`
	Placemarks []kmlPlacemark `xml:"Document>Placemark"`
}

type kmlPlacemark struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Coordinates string `xml:"Point>coordinates"` // lon,lat[,alt]
}

// KML renders captures with coordinates as a KML document
func KML(captures []models.Capture) ([]byte, error) {
	doc := kmlDocument{
		Xmlns: "http://www.opengis.net/kml/2.2",
		Name:  "FibreField Home Drops",
	}

	for _, c := range captures {
		if !c.HasLocation() {
			continue
		}
		alt := 0.0
		if c.Altitude != nil {
			alt = *c.Altitude
		}
		doc.Placemarks = append(doc.Placemarks, kmlPlacemark{
			Name:        c.ID,
			Description: fmt.Sprintf("Pole %s, status %s, approval %s", c.PoleNumber, c.Status, c.ApprovalStatus),
			Coordinates: fmt.Sprintf("%f,%f,%f", *c.Longitude, *c.Latitude, alt),
		})
	}

	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
