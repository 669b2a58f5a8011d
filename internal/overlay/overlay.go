// Package overlay draws detection results onto camera frames for the live
// preview.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/ayusman/mindfultouch/internal/config"
	"github.com/ayusman/mindfultouch/internal/engine"
	"github.com/ayusman/mindfultouch/internal/geom"
	"github.com/ayusman/mindfultouch/internal/region"
	"github.com/ayusman/mindfultouch/internal/region/outline"
)

var (
	colorAlert   = color.RGBA{R: 230, G: 60, B: 60, A: 255}
	colorContact = color.RGBA{R: 255, G: 200, B: 0, A: 255}
	colorPinch   = color.RGBA{R: 0, G: 220, B: 255, A: 255}
	colorZone    = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	colorText    = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// RegionColors are the outline colours per region.
var RegionColors = map[region.Name]color.RGBA{
	region.Scalp:       {R: 255, G: 128, B: 0, A: 255},
	region.Eyebrows:    {R: 0, G: 200, B: 0, A: 255},
	region.Eyes:        {R: 0, G: 128, B: 255, A: 255},
	region.Mouth:       {R: 255, G: 0, B: 200, A: 255},
	region.Beard:       {R: 128, G: 64, B: 255, A: 255},
	region.LeftTemple:  {R: 255, G: 255, B: 0, A: 255},
	region.RightTemple: {R: 255, G: 255, B: 0, A: 255},
}

// Draw renders region outlines, contact zones, fingertip contacts, pinch
// points and the alert banner onto img. Regions whose settings hide
// landmarks are skipped.
func Draw(img *gocv.Mat, res engine.DetectionResult, cfg config.Detection) {
	if img == nil || img.Empty() {
		return
	}

	alerting := make(map[region.Name]bool, len(res.AlertsActive))
	for _, n := range res.AlertsActive {
		alerting[n] = true
	}

	for _, n := range region.All {
		if !cfg.Region(n).ShowLandmarks {
			continue
		}
		if zone, ok := res.Zones[n]; ok {
			polyline(img, zone, colorZone, 1)
		}
		if poly, ok := res.Polygons[n]; ok {
			c, thick := RegionColors[n], 2
			if alerting[n] {
				c, thick = colorAlert, 3
			}
			polyline(img, poly, c, thick)
		}
	}

	if res.Regions.Valid {
		for _, n := range region.PinchPriority {
			if !cfg.IsActive(n) || !cfg.Region(n).ShowLandmarks {
				continue
			}
			if p, ok := res.Regions.Target(n); ok {
				c := RegionColors[n]
				if alerting[n] {
					c = colorAlert
				}
				gocv.Circle(img, pt(p), 5, c, 2)
			}
		}
	}

	for _, c := range res.Contacts {
		gocv.Circle(img, pt(c.Point), 6, colorContact, -1)
	}
	for _, p := range res.Pinches {
		gocv.Circle(img, pt(p), 4, colorPinch, -1)
	}

	if res.IsPullingDetected || len(res.AlertsActive) > 0 {
		banner(img, res)
	}
}

// banner draws a red frame border and the alerting region names.
func banner(img *gocv.Mat, res engine.DetectionResult) {
	w, h := img.Cols(), img.Rows()
	gocv.Rectangle(img, image.Rect(0, 0, w-1, h-1), colorAlert, 6)

	text := "Mindful moment"
	if res.IsPullingDetected {
		text = fmt.Sprintf("Pulling: %s", res.PullingRegion)
	} else if len(res.AlertsActive) > 0 {
		text = fmt.Sprintf("Touching: %s", res.AlertsActive[0])
	}
	gocv.PutText(img, text, image.Pt(16, 36), gocv.FontHersheySimplex, 0.9, colorAlert, 4)
	gocv.PutText(img, text, image.Pt(16, 36), gocv.FontHersheySimplex, 0.9, colorText, 2)
}

func polyline(img *gocv.Mat, p outline.Polygon, c color.RGBA, thickness int) {
	if !p.Closed() {
		return
	}
	pv := gocv.NewPointsVectorFromPoints([][]image.Point{p.Points()})
	defer pv.Close()
	gocv.Polylines(img, pv, true, c, thickness)
}

func pt(p geom.Point3D) image.Point {
	return image.Pt(int(p.X+0.5), int(p.Y+0.5))
}

// EncodeJPEG encodes img for the MJPEG stream.
func EncodeJPEG(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}
