// Package outline draws region polygons on the face mesh and tests fingertip
// contact against them.
package outline

import (
	"image"
	"math"
	"sort"

	clipper "github.com/ctessum/go.clipper"
	"gocv.io/x/gocv"

	"github.com/ayusman/mindfultouch/internal/geom"
	"github.com/ayusman/mindfultouch/internal/landmark"
	"github.com/ayusman/mindfultouch/internal/mediapipe"
	"github.com/ayusman/mindfultouch/internal/region"
)

// Polygon is a closed 2D outline in pixel space. Depth is ignored.
type Polygon []geom.Point3D

// Scalp and beard construction ratios.
const (
	scalpHeightRatio   = 0.6
	scalpSpreadRatio   = 0.1
	scalpCrownRatio    = 1.5
	beardWidthRatio    = 0.8
	beardHeightRatio   = 0.3
	beardAboveMouth    = 0.3
	beardBelowChin     = 0.7
	minPolygonVertices = 3
)

// Points converts the polygon to integer image points.
func (p Polygon) Points() []image.Point {
	pts := make([]image.Point, len(p))
	for i, v := range p {
		pts[i] = image.Pt(int(math.Round(v.X)), int(math.Round(v.Y)))
	}
	return pts
}

// Closed reports whether the polygon has enough vertices to enclose an area.
func (p Polygon) Closed() bool {
	return len(p) >= minPolygonVertices
}

// Center returns the vertex mean, used to anchor labels.
func (p Polygon) Center() geom.Point3D {
	c, _ := geom.Centroid(p)
	return c
}

// SignedDistance returns the distance from pt to the polygon edge: positive
// inside, negative outside, zero on the boundary. Open polygons report -Inf.
func (p Polygon) SignedDistance(pt geom.Point3D) float64 {
	if !p.Closed() {
		return math.Inf(-1)
	}
	pv := gocv.NewPointVectorFromPoints(p.Points())
	defer pv.Close()
	return gocv.PointPolygonTest(pv, image.Pt(int(math.Round(pt.X)), int(math.Round(pt.Y))), true)
}

// Contains reports whether pt is inside the polygon or within tolerance
// pixels of its edge.
func (p Polygon) Contains(pt geom.Point3D, tolerance float64) (bool, float64) {
	d := p.SignedDistance(pt)
	return d >= -tolerance, math.Abs(d)
}

// ConvexHull returns the convex hull of points in counter-clockwise order
// (monotone chain). Collinear points are dropped.
func ConvexHull(points []geom.Point3D) Polygon {
	if len(points) < minPolygonVertices {
		return append(Polygon(nil), points...)
	}

	pts := make([]geom.Point3D, len(points))
	for i, p := range points {
		pts[i] = geom.Point3D{X: p.X, Y: p.Y}
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	cross := func(o, a, b geom.Point3D) float64 {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}

	hull := make(Polygon, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// ContactZone grows the polygon outward by tolerance pixels with rounded
// corners. The result is the area in which a fingertip counts as contact.
func ContactZone(p Polygon, tolerance float64) Polygon {
	if !p.Closed() || tolerance <= 0 {
		return p
	}

	var path clipper.Path
	for _, v := range p {
		path = append(path, &clipper.IntPoint{X: clipper.CInt(math.Round(v.X)), Y: clipper.CInt(math.Round(v.Y))})
	}

	co := clipper.NewClipperOffset()
	co.AddPath(path, clipper.JtRound, clipper.EtClosedPolygon)
	solution := co.Execute(tolerance)

	// A convex outline grows into a single path; keep the largest if not.
	var best clipper.Path
	for _, sol := range solution {
		if len(sol) > len(best) {
			best = sol
		}
	}
	if len(best) == 0 {
		return p
	}

	out := make(Polygon, len(best))
	for i, pt := range best {
		out[i] = geom.Point3D{X: float64(pt.X), Y: float64(pt.Y)}
	}
	return out
}

// Build outlines one region. ok is false for regions without an outline or
// when the mesh lacks the required landmarks.
func Build(face landmark.Set, n region.Name) (Polygon, bool) {
	var poly Polygon
	switch n {
	case region.Scalp:
		poly = scalpPolygon(face)
	case region.Eyebrows:
		poly = hullOf(face, mediapipe.RightEyebrowIndices, mediapipe.LeftEyebrowIndices)
	case region.Eyes:
		poly = hullOf(face, mediapipe.RightEyeIndices, mediapipe.LeftEyeIndices)
	case region.Mouth:
		poly = hullOf(face, mediapipe.MouthIndices)
	case region.Beard:
		poly = beardPolygon(face)
	}
	return poly, poly.Closed()
}

// BuildAll outlines every requested region that can be outlined.
func BuildAll(face landmark.Set, names []region.Name) map[region.Name]Polygon {
	out := make(map[region.Name]Polygon, len(names))
	for _, n := range names {
		if poly, ok := Build(face, n); ok {
			out[n] = poly
		}
	}
	return out
}

func hullOf(face landmark.Set, groups ...[]int) Polygon {
	var pts []geom.Point3D
	for _, g := range groups {
		pts = append(pts, face.Select(g)...)
	}
	return ConvexHull(pts)
}

// scalpPolygon extends the forehead upward by a fraction of the temple span
// because the mesh stops at the hairline.
func scalpPolygon(face landmark.Set) Polygon {
	pts, ok := points(face,
		mediapipe.FaceForeheadCenter,
		mediapipe.FaceLeftTemple,
		mediapipe.FaceRightTemple,
		mediapipe.FaceLeftForehead,
		mediapipe.FaceRightForehead,
	)
	if !ok {
		return nil
	}
	center, left, right, leftForehead, rightForehead := pts[0], pts[1], pts[2], pts[3], pts[4]

	width := geom.Distance2D(left, right)
	height := width * scalpHeightRatio

	// Temples are mirrored in image space, so spread each outward from the
	// centre line rather than assuming which side is which.
	spread := func(p geom.Point3D) float64 {
		if p.X < center.X {
			return -width * scalpSpreadRatio
		}
		return width * scalpSpreadRatio
	}

	return Polygon{
		flat(leftForehead),
		flat(left),
		{X: left.X + spread(left), Y: left.Y - height},
		{X: center.X, Y: center.Y - height*scalpCrownRatio},
		{X: right.X + spread(right), Y: right.Y - height},
		flat(right),
		flat(rightForehead),
	}
}

// beardPolygon is a box from just above the mouth to below the chin, sized by
// the cheek span so it covers facial hair on the cheeks.
func beardPolygon(face landmark.Set) Polygon {
	pts, ok := points(face,
		mediapipe.FaceMouthLeft,
		mediapipe.FaceMouthRight,
		mediapipe.FaceChin,
		mediapipe.FaceLeftCheek,
		mediapipe.FaceRightCheek,
	)
	if !ok {
		return nil
	}
	mouthLeft, mouthRight, chin, leftCheek, rightCheek := pts[0], pts[1], pts[2], pts[3], pts[4]

	centerX := (mouthLeft.X + mouthRight.X) / 2
	width := geom.Distance2D(leftCheek, rightCheek)
	regionWidth := width * beardWidthRatio
	regionHeight := width * beardHeightRatio

	left := centerX - regionWidth/2
	right := centerX + regionWidth/2
	top := mouthLeft.Y - regionHeight*beardAboveMouth
	bottom := chin.Y + regionHeight*beardBelowChin

	return Polygon{
		{X: left, Y: top},
		{X: right, Y: top},
		{X: right, Y: bottom},
		{X: left, Y: bottom},
	}
}

func points(face landmark.Set, indices ...int) ([]geom.Point3D, bool) {
	out := make([]geom.Point3D, len(indices))
	for i, idx := range indices {
		p, ok := face.At(idx)
		if !ok {
			return nil, false
		}
		out[i] = p
	}
	return out, true
}

func flat(p geom.Point3D) geom.Point3D {
	return geom.Point3D{X: p.X, Y: p.Y}
}
