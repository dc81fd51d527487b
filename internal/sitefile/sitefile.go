// Package sitefile reads and writes roofwatts site documents: JSON files
// carrying one building's roof mesh plus the metadata the analysis pipeline
// needs (location, true north, floor and window areas). Site documents are
// produced by upstream model exporters and by the roof simulator.
package sitefile

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chrissnell/roofwatts/internal/analysis"
	"github.com/chrissnell/roofwatts/pkg/geom"
)

// CurrentSchemaVersion is the document revision this package reads and
// writes.
const CurrentSchemaVersion = 1

// Mesh is the triangulated roof geometry in world meters. Vertices holds
// xyz triples. When Indices is empty the vertices form a triangle soup,
// nine floats per triangle.
type Mesh struct {
	Vertices []float64 `json:"vertices"`
	Indices  []uint32  `json:"indices,omitempty"`
}

// Document is one building's site description.
type Document struct {
	SchemaVersion int    `json:"schema_version"`
	Project       string `json:"project,omitempty"`
	SourceFile    string `json:"source_file,omitempty"`

	// Latitude and Longitude are optional; a document without them still
	// supports geometry-only analysis.
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	TrueNorthDeg float64 `json:"true_north_deg,omitempty"`
	FloorAreaM2  float64 `json:"floor_area_m2,omitempty"`
	WindowAreaM2 float64 `json:"window_area_m2,omitempty"`

	// RoofAreaM2 is the roof area the exporter recorded, used only to
	// cross-check the computed geometry.
	RoofAreaM2 float64 `json:"roof_area_m2,omitempty"`

	Mesh Mesh `json:"mesh"`
}

// Load reads and validates the site document at path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read site document: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("site document %s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes and validates a site document from raw JSON.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("could not parse site document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the document for structural problems that would make the
// mesh unreadable. Geometric problems (degenerate triangles, downward
// normals) are not errors; the pipeline excludes those per face.
func (d *Document) Validate() error {
	if d.SchemaVersion != CurrentSchemaVersion {
		return fmt.Errorf("unsupported schema_version %d, want %d", d.SchemaVersion, CurrentSchemaVersion)
	}
	if (d.Latitude == nil) != (d.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be provided together")
	}
	if d.Latitude != nil {
		if *d.Latitude < -90 || *d.Latitude > 90 {
			return fmt.Errorf("latitude %v outside [-90, 90]", *d.Latitude)
		}
		if *d.Longitude < -180 || *d.Longitude > 180 {
			return fmt.Errorf("longitude %v outside [-180, 180]", *d.Longitude)
		}
	}
	if d.FloorAreaM2 < 0 || d.WindowAreaM2 < 0 || d.RoofAreaM2 < 0 {
		return fmt.Errorf("area fields must not be negative")
	}

	nFloats := len(d.Mesh.Vertices)
	if nFloats%3 != 0 {
		return fmt.Errorf("vertex array length %d not divisible by 3", nFloats)
	}
	nVerts := nFloats / 3

	if len(d.Mesh.Indices) > 0 {
		if len(d.Mesh.Indices)%3 != 0 {
			return fmt.Errorf("index array length %d not divisible by 3", len(d.Mesh.Indices))
		}
		for i, idx := range d.Mesh.Indices {
			if int(idx) >= nVerts {
				return fmt.Errorf("index %d at position %d out of range for %d vertices", idx, i, nVerts)
			}
		}
		return nil
	}

	// Triangle soup: every three vertices form one triangle.
	if nVerts%3 != 0 {
		return fmt.Errorf("triangle soup needs a vertex count divisible by 3, have %d", nVerts)
	}
	return nil
}

// Triangles converts the mesh into triangle records. The document must
// already be validated.
func (d *Document) Triangles() []geom.Triangle {
	at := func(i uint32) r3.Vec {
		v := d.Mesh.Vertices[3*int(i):]
		return r3.Vec{X: v[0], Y: v[1], Z: v[2]}
	}

	if len(d.Mesh.Indices) > 0 {
		tris := make([]geom.Triangle, 0, len(d.Mesh.Indices)/3)
		for i := 0; i+2 < len(d.Mesh.Indices); i += 3 {
			tris = append(tris, geom.Triangle{
				A: at(d.Mesh.Indices[i]),
				B: at(d.Mesh.Indices[i+1]),
				C: at(d.Mesh.Indices[i+2]),
			})
		}
		return tris
	}

	nVerts := uint32(len(d.Mesh.Vertices) / 3)
	tris := make([]geom.Triangle, 0, nVerts/3)
	for i := uint32(0); i+2 < nVerts; i += 3 {
		tris = append(tris, geom.Triangle{A: at(i), B: at(i + 1), C: at(i + 2)})
	}
	return tris
}

// Location returns the site coordinate, or nil when the document has none.
func (d *Document) Location() *analysis.Location {
	if d.Latitude == nil || d.Longitude == nil {
		return nil
	}
	return &analysis.Location{Latitude: *d.Latitude, Longitude: *d.Longitude}
}

// Input assembles the analysis input for this document.
func (d *Document) Input() analysis.Input {
	return analysis.Input{
		Project:            d.Project,
		SourceFile:         d.SourceFile,
		Mesh:               d.Triangles(),
		TrueNorthDeg:       d.TrueNorthDeg,
		Location:           d.Location(),
		FloorAreaM2:        d.FloorAreaM2,
		WindowAreaM2:       d.WindowAreaM2,
		DeclaredRoofAreaM2: d.RoofAreaM2,
	}
}

// WriteFile marshals the document and writes it to path, readable for the
// usual hand inspection.
func (d *Document) WriteFile(path string) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("could not marshal site document: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("could not write site document: %w", err)
	}
	return nil
}
