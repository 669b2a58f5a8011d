package mediapipe

import (
	"math"

	"github.com/ayusman/mindfultouch/internal/geom"
)

// normalize converts a pixel-space point into model space for a frame size.
func normalize(p geom.Point3D, width, height int) Landmark {
	return Landmark{
		X: p.X / float64(width),
		Y: p.Y / float64(height),
		Z: p.Z / float64(width),
	}
}

// FaceFixture returns a synthetic face mesh whose nose bridge sits at pixel
// (cx, cy) in a width x height frame.
//
// Layout in pixels relative to (cx, cy): brows at y-12 spanning x±35, forehead
// at y-40, temples at (±60, -20), eye centres at (±27.5, 0), mouth around y+45,
// and every other point parked at (0, +30).
func FaceFixture(width, height int, cx, cy float64) Face {
	pts := make([]geom.Point3D, NumFaceLandmarks)
	set := func(indices []int, dx, dy float64) {
		for _, i := range indices {
			pts[i] = geom.Point3D{X: cx + dx, Y: cy + dy}
		}
	}

	for i := range pts {
		pts[i] = geom.Point3D{X: cx, Y: cy + 30}
	}

	set(FaceCenterIndices, 0, 0)
	set(ForeheadIndices, 0, -40)
	set(LeftTempleIndices, -60, -20)
	set(RightTempleIndices, 60, -20)

	// Brows are mirror images so their centroid sits on the midline.
	for k, i := range RightEyebrowIndices {
		dy := -10.0
		if k%2 == 1 {
			dy = -14
		}
		pts[i] = geom.Point3D{X: cx - 35 + float64(k)*2.5, Y: cy + dy}
	}
	for k, i := range LeftEyebrowIndices {
		dy := -10.0
		if k%2 == 1 {
			dy = -14
		}
		pts[i] = geom.Point3D{X: cx + 35 - float64(k)*2.5, Y: cy + dy}
	}

	// Eyes: a small ring around each eye centre.
	for k, i := range RightEyeIndices {
		pts[i] = ringPoint(cx-27.5, cy, 10, 4, k, len(RightEyeIndices))
	}
	for k, i := range LeftEyeIndices {
		pts[i] = ringPoint(cx+27.5, cy, 10, 4, k, len(LeftEyeIndices))
	}
	pts[RightEyeOuter] = geom.Point3D{X: cx - 40, Y: cy}
	pts[RightEyeInner] = geom.Point3D{X: cx - 15, Y: cy}
	pts[LeftEyeInner] = geom.Point3D{X: cx + 15, Y: cy}
	pts[LeftEyeOuter] = geom.Point3D{X: cx + 40, Y: cy}

	for k, i := range MouthIndices {
		pts[i] = ringPoint(cx, cy+45, 15, 5, k, len(MouthIndices))
	}

	pts[FaceLeftForehead] = geom.Point3D{X: cx - 30, Y: cy - 35}
	pts[FaceRightForehead] = geom.Point3D{X: cx + 30, Y: cy - 35}
	pts[FaceMouthLeft] = geom.Point3D{X: cx - 15, Y: cy + 45}
	pts[FaceMouthRight] = geom.Point3D{X: cx + 15, Y: cy + 45}
	pts[FaceChin] = geom.Point3D{X: cx, Y: cy + 75}
	pts[FaceLeftCheek] = geom.Point3D{X: cx - 45, Y: cy + 20}
	pts[FaceRightCheek] = geom.Point3D{X: cx + 45, Y: cy + 20}

	face := Face{Points: make([]Landmark, len(pts))}
	for i, p := range pts {
		face.Points[i] = normalize(p, width, height)
	}
	return face
}

// ringPoint places the k-th of n points on an ellipse.
func ringPoint(cx, cy, rx, ry float64, k, n int) geom.Point3D {
	a := 2 * math.Pi * float64(k) / float64(n)
	return geom.Point3D{X: cx + rx*math.Cos(a), Y: cy + ry*math.Sin(a)}
}

// HandFixture returns a right hand whose thumb and index tips sit at the given
// pixel positions, whose thumb and index distal segments are perpendicular, and
// whose palm faces from the pinch midpoint toward palmTarget.
func HandFixture(width, height int, thumbTip, indexTip, palmTarget geom.Point3D) Hand {
	return handFixture(width, height, thumbTip, indexTip, palmTarget, HandRight)
}

// LeftHandFixture is HandFixture for a left hand: the knuckles are laid out
// in mirror image, so the raw knuckle cross product points away from
// palmTarget while the palm still faces it.
func LeftHandFixture(width, height int, thumbTip, indexTip, palmTarget geom.Point3D) Hand {
	return handFixture(width, height, thumbTip, indexTip, palmTarget, HandLeft)
}

func handFixture(width, height int, thumbTip, indexTip, palmTarget geom.Point3D, handedness string) Hand {
	mid := geom.Midpoint(thumbTip, indexTip)

	d, ok := geom.Normalize(geom.VectorBetween(mid, palmTarget))
	if !ok {
		d = geom.Point3D{Z: -1}
	}

	ref := geom.Point3D{Z: 1}
	if math.Abs(geom.Dot(d, ref)) > 0.9 {
		ref = geom.Point3D{X: 1}
	}
	// e1 x e2 == d, so cross(indexMCP-wrist, pinkyMCP-wrist) points along d
	// for a right hand. Swapping the axes mirrors the hand.
	e1, _ := geom.Normalize(geom.Cross(d, ref))
	e2 := geom.Cross(d, e1)
	if handedness == HandLeft {
		e1, e2 = e2, e1
	}

	at := func(base geom.Point3D, a, b float64) geom.Point3D {
		return geom.Point3D{
			X: base.X + a*e1.X + b*e2.X,
			Y: base.Y + a*e1.Y + b*e2.Y,
			Z: base.Z + a*e1.Z + b*e2.Z,
		}
	}

	pts := make([]geom.Point3D, NumLandmarks)
	wrist := at(mid, -40, -40)
	pts[Wrist] = wrist

	pts[ThumbCMC] = at(wrist, 5, 10)
	pts[ThumbMCP] = at(wrist, 10, 20)
	pts[ThumbIP] = at(thumbTip, -20, 0)
	pts[ThumbTip] = thumbTip

	pts[IndexMCP] = at(wrist, 40, 0)
	pts[IndexPIP] = at(indexTip, 0, -35)
	pts[IndexDIP] = at(indexTip, 0, -20)
	pts[IndexTip] = indexTip

	pts[PinkyMCP] = at(wrist, 0, 40)
	fingers := [][4]int{
		{MiddleMCP, MiddlePIP, MiddleDIP, MiddleTip},
		{RingMCP, RingPIP, RingDIP, RingTip},
		{PinkyMCP, PinkyPIP, PinkyDIP, PinkyTip},
	}
	for k, f := range fingers {
		base := at(wrist, 30-float64(k)*10, 10+float64(k)*10)
		if f[0] != PinkyMCP {
			pts[f[0]] = base
		}
		pts[f[1]] = at(base, 8, 8)
		pts[f[2]] = at(base, 12, 12)
		pts[f[3]] = at(base, 15, 15)
	}

	hand := Hand{Handedness: handedness, Score: 0.95, Points: make([]Landmark, len(pts))}
	for i, p := range pts {
		hand.Points[i] = normalize(p, width, height)
	}
	return hand
}
