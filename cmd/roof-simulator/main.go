// Package main provides a synthetic roof generator. It writes site documents
// with flat, shed, gable, hip or pyramid roof meshes for exercising the
// analysis pipeline without a real model export.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chrissnell/roofwatts/internal/sitefile"
	"github.com/chrissnell/roofwatts/pkg/geom"
)

func main() {
	style := flag.String("style", "gable", "roof style: flat, shed, gable, hip or pyramid")
	width := flag.Float64("width", 12, "building width in meters, along the ridge")
	depth := flag.Float64("depth", 8, "building depth in meters")
	tilt := flag.Float64("tilt", 30, "roof pitch in degrees, ignored for flat")
	azimuth := flag.Float64("azimuth", 180, "compass azimuth of the primary roof plane")
	lat := flag.Float64("lat", math.NaN(), "site latitude, requires -lon")
	lon := flag.Float64("lon", math.NaN(), "site longitude, requires -lat")
	trueNorth := flag.Float64("true-north", 0, "model north offset in degrees")
	floorArea := flag.Float64("floor-area", 0, "floor area in square meters, 0 uses the footprint")
	windowArea := flag.Float64("window-area", 0, "window area in square meters")
	project := flag.String("project", "simulated-roof", "project name stamped on the document")
	out := flag.String("out", "", "output path, default <style>-roof.json")
	degenerate := flag.Int("degenerate", 0, "zero-area triangles to append")
	noise := flag.Float64("noise", 0, "maximum vertex jitter in meters")
	indexed := flag.Bool("indexed", false, "emit an indexed mesh instead of a triangle soup")
	seed := flag.Int64("seed", 0, "jitter random seed, 0 seeds from the clock")
	flag.Parse()

	if *width <= 0 || *depth <= 0 {
		log.Fatalf("width and depth must be positive, have %gx%g", *width, *depth)
	}
	if *tilt < 0 || *tilt >= 90 {
		log.Fatalf("tilt %g outside [0, 90)", *tilt)
	}
	if math.IsNaN(*lat) != math.IsNaN(*lon) {
		log.Fatal("-lat and -lon must be provided together")
	}

	tris, err := buildRoof(strings.ToLower(*style), *width, *depth, *tilt, *azimuth)
	if err != nil {
		log.Fatal(err)
	}
	tris = appendDegenerates(tris, *degenerate)

	if *noise > 0 {
		if *seed == 0 {
			*seed = time.Now().UnixNano()
		}
		jitter(tris, *noise, rand.New(rand.NewSource(*seed)))
	}

	// Declare the roof area the same way the analyzer will measure it, so
	// the generated document passes its own cross-check.
	var roofArea float64
	for _, f := range geom.ExtractFaces(tris) {
		if f.Upward() {
			roofArea += f.Area
		}
	}

	if *floorArea == 0 {
		*floorArea = *width * *depth
	}
	outPath := *out
	if outPath == "" {
		outPath = fmt.Sprintf("%s-roof.json", strings.ToLower(*style))
	}

	doc := &sitefile.Document{
		SchemaVersion: sitefile.CurrentSchemaVersion,
		Project:       *project,
		SourceFile:    filepath.Base(outPath),
		TrueNorthDeg:  *trueNorth,
		FloorAreaM2:   *floorArea,
		WindowAreaM2:  *windowArea,
		RoofAreaM2:    roofArea,
		Mesh:          buildMesh(tris, *indexed),
	}
	if !math.IsNaN(*lat) {
		doc.Latitude, doc.Longitude = lat, lon
	}

	if err := doc.WriteFile(outPath); err != nil {
		log.Fatal(err)
	}
	min, max, _ := geom.Bounds(tris)
	log.Printf("Roof Simulator: wrote %s, style %s, %d triangles, %.1f m2 of roof, extent %.1fx%.1fx%.1f m",
		outPath, *style, len(tris), roofArea, max.X-min.X, max.Y-min.Y, max.Z-min.Z)
}

// buildRoof assembles the triangle mesh for one roof style. The primary
// plane faces azimuthDeg; the other planes of a style follow at right
// angles or opposite, the way the real shape dictates.
func buildRoof(style string, widthM, depthM, tiltDeg, azimuthDeg float64) ([]geom.Triangle, error) {
	switch style {
	case "flat":
		return geom.TiltedRect(0, 0, widthM, depthM, r3.Vec{}), nil
	case "shed":
		return geom.TiltedRect(tiltDeg, azimuthDeg, widthM, depthM, r3.Vec{}), nil
	case "gable":
		return gableRoof(widthM, depthM, tiltDeg, azimuthDeg), nil
	case "hip":
		return hipRoof(widthM, depthM, tiltDeg, azimuthDeg), nil
	case "pyramid":
		return pyramidRoof(widthM, depthM, tiltDeg, azimuthDeg), nil
	default:
		return nil, fmt.Errorf("unknown roof style %q", style)
	}
}

// gableRoof builds two rectangular planes meeting at a ridge along the
// building width. Each half covers depthM/2 of footprint, so the slope
// length grows with pitch.
func gableRoof(widthM, depthM, tiltDeg, azimuthDeg float64) []geom.Triangle {
	slope := depthM / 2 / math.Cos(tiltDeg*math.Pi/180)
	tris := geom.TiltedRect(tiltDeg, 0, widthM, slope, r3.Vec{})
	tris = append(tris, geom.TiltedRect(tiltDeg, 180, widthM, slope, r3.Vec{X: widthM})...)
	return rotateZ(tris, azimuthDeg)
}

// hipRoof builds two trapezoid planes and two triangular ends around a
// ridge inset half the short span from each end, which keeps the pitch
// equal on all four planes.
func hipRoof(widthM, depthM, tiltDeg, azimuthDeg float64) []geom.Triangle {
	long, short := widthM, depthM
	if short > long {
		// The ridge always runs along the longer side.
		long, short = short, long
		azimuthDeg += 90
	}
	if long == short {
		// A square footprint has no ridge left.
		return pyramidRoof(widthM, depthM, tiltDeg, azimuthDeg)
	}

	half := short / 2
	rise := half * math.Tan(tiltDeg*math.Pi/180)

	// Footprint corners counter-clockwise seen from above, ridge along X.
	a := r3.Vec{}
	b := r3.Vec{X: long}
	c := r3.Vec{X: long, Y: short}
	d := r3.Vec{Y: short}
	p := r3.Vec{X: half, Y: half, Z: rise}
	q := r3.Vec{X: long - half, Y: half, Z: rise}

	tris := []geom.Triangle{
		{A: a, B: b, C: q}, {A: a, B: q, C: p}, // south trapezoid
		{A: c, B: d, C: p}, {A: c, B: p, C: q}, // north trapezoid
		{A: b, B: c, C: q},                     // east end
		{A: d, B: a, C: p},                     // west end
	}
	return rotateZ(tris, azimuthDeg)
}

// pyramidRoof builds four triangular planes meeting at an apex over the
// footprint center. The apex height is set so the planes across the
// shorter span carry the requested pitch; on a rectangular footprint the
// end planes come out shallower.
func pyramidRoof(widthM, depthM, tiltDeg, azimuthDeg float64) []geom.Triangle {
	half := math.Min(widthM, depthM) / 2
	apex := r3.Vec{X: widthM / 2, Y: depthM / 2, Z: half * math.Tan(tiltDeg*math.Pi/180)}

	a := r3.Vec{}
	b := r3.Vec{X: widthM}
	c := r3.Vec{X: widthM, Y: depthM}
	d := r3.Vec{Y: depthM}

	tris := []geom.Triangle{
		{A: a, B: b, C: apex}, // south
		{A: b, B: c, C: apex}, // east
		{A: c, B: d, C: apex}, // north
		{A: d, B: a, C: apex}, // west
	}
	return rotateZ(tris, azimuthDeg)
}

// rotateZ swings triangles about the Z axis so every face azimuth shifts
// by azimuthDeg, the same convention geom.TiltedRect uses.
func rotateZ(tris []geom.Triangle, azimuthDeg float64) []geom.Triangle {
	if azimuthDeg == 0 {
		return tris
	}
	a := -azimuthDeg * math.Pi / 180
	sin, cos := math.Sin(a), math.Cos(a)
	rot := func(p r3.Vec) r3.Vec {
		return r3.Vec{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos, Z: p.Z}
	}
	out := make([]geom.Triangle, len(tris))
	for i, t := range tris {
		out[i] = geom.Triangle{A: rot(t.A), B: rot(t.B), C: rot(t.C)}
	}
	return out
}

// appendDegenerates adds n collinear zero-area triangles, the kind of
// debris real exporters leave behind.
func appendDegenerates(tris []geom.Triangle, n int) []geom.Triangle {
	for i := 0; i < n; i++ {
		x := float64(i)
		tris = append(tris, geom.Triangle{
			A: r3.Vec{X: x},
			B: r3.Vec{X: x + 1},
			C: r3.Vec{X: x + 2},
		})
	}
	return tris
}

// jitter displaces every vertex by up to maxM along each axis in place.
// Small values exercise the clustering tolerance; large ones break the
// planes apart.
func jitter(tris []geom.Triangle, maxM float64, rng *rand.Rand) {
	shake := func(p r3.Vec) r3.Vec {
		return r3.Vec{
			X: p.X + (rng.Float64()*2-1)*maxM,
			Y: p.Y + (rng.Float64()*2-1)*maxM,
			Z: p.Z + (rng.Float64()*2-1)*maxM,
		}
	}
	for i, t := range tris {
		tris[i] = geom.Triangle{A: shake(t.A), B: shake(t.B), C: shake(t.C)}
	}
}

// buildMesh encodes triangles as a soup, or deduplicates exactly equal
// vertices into an indexed mesh.
func buildMesh(tris []geom.Triangle, indexed bool) sitefile.Mesh {
	if !indexed {
		verts := make([]float64, 0, len(tris)*9)
		for _, t := range tris {
			for _, p := range []r3.Vec{t.A, t.B, t.C} {
				verts = append(verts, p.X, p.Y, p.Z)
			}
		}
		return sitefile.Mesh{Vertices: verts}
	}

	var mesh sitefile.Mesh
	seen := make(map[r3.Vec]uint32, len(tris)*3)
	for _, t := range tris {
		for _, p := range []r3.Vec{t.A, t.B, t.C} {
			idx, ok := seen[p]
			if !ok {
				idx = uint32(len(seen))
				seen[p] = idx
				mesh.Vertices = append(mesh.Vertices, p.X, p.Y, p.Z)
			}
			mesh.Indices = append(mesh.Indices, idx)
		}
	}
	return mesh
}
