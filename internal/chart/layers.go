package chart

import (
	"fmt"
	"image/color"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"gocharts/internal/hexcolor"
	"gocharts/internal/model"
)

// LayerTag orders the render layers back to front. The order is a correctness
// contract: overlays sit behind candle geometry, and the table stays legible
// on top.
type LayerTag int

const (
	LayerBackground LayerTag = iota
	LayerGrid
	LayerZones
	LayerVLines
	LayerVolume
	LayerWicks
	LayerBodies
	LayerMarkers
	LayerPriceLine
	LayerTable
)

var layerNames = [...]string{
	"background", "grid", "zones", "vlines", "volume",
	"wicks", "bodies", "markers", "priceline", "table",
}

func (t LayerTag) String() string {
	if t < 0 || int(t) >= len(layerNames) {
		return fmt.Sprintf("layer(%d)", int(t))
	}
	return layerNames[t]
}

// Drawable primitives. Coordinates are canvas pixels, colors
// non-premultiplied RGBA.

// Rect is a filled axis-aligned rectangle.
type Rect struct {
	X0, Y0, X1, Y1 float64
	Fill           color.NRGBA
}

// Line is a stroked segment.
type Line struct {
	X0, Y0, X1, Y1 float64
	Width          float64
	Stroke         color.NRGBA
}

// Point is a polygon vertex.
type Point struct {
	X, Y float64
}

// Poly is a filled polygon.
type Poly struct {
	Points []Point
	Fill   color.NRGBA
}

// Text anchoring along the x axis.
const (
	AlignLeft = iota
	AlignCenter
	AlignRight
)

// Text is a string anchored at (X, Y), vertically centered.
type Text struct {
	X, Y  float64
	S     string
	Size  float64
	Color color.NRGBA
	Align int
}

// Layer is one z-slot of primitives. Within a layer rectangles draw first,
// then lines, polygons, and text, which is sufficient for every layer here
// (the table needs its cell backgrounds under its text).
type Layer struct {
	Tag   LayerTag
	Rects []Rect
	Lines []Line
	Polys []Poly
	Texts []Text
}

var (
	white      = color.NRGBA{255, 255, 255, 255}
	black      = color.NRGBA{0, 0, 0, 255}
	wickGray   = color.NRGBA{70, 70, 70, 255}
	volumeGray = color.NRGBA{130, 130, 130, 255}
	upGreen    = color.NRGBA{0, 150, 0, 255}
	downRed    = color.NRGBA{180, 0, 0, 255}
	gridLight  = color.NRGBA{235, 235, 235, 255}
	gridFaint  = color.NRGBA{240, 240, 240, 255}
	gridVert   = color.NRGBA{245, 245, 245, 255}
	axisGray   = color.NRGBA{150, 150, 150, 255}
	labelGray  = color.NRGBA{90, 90, 90, 255}
	cellGray   = color.NRGBA{220, 220, 220, 255}
)

// BuildLayers computes the full primitive set for a validated request, in the
// fixed back-to-front order. Fails before producing anything when the candle
// series is empty, so no partial image can ever be written.
func BuildLayers(req *model.ChartRequest) ([]Layer, error) {
	if len(req.Candles) == 0 {
		return nil, fmt.Errorf("%s %s: %w", req.Ticker, req.Timeframe, model.ErrEmptySeries)
	}

	ts := NewTimeScale(req.Candles)
	ps := NewPriceScale(req.Candles)

	return []Layer{
		backgroundLayer(req.Title),
		gridLayer(ts, ps, req.Candles),
		zonesLayer(ts, ps, req.Plots.Zones),
		vlinesLayer(ts, req.Plots.VLines),
		volumeLayer(ts, req.Candles, req.VolumeColors),
		wicksLayer(ts, ps, req.Candles),
		bodiesLayer(ts, ps, req.Candles, req.CandleColors),
		markersLayer(ts, ps, req.Candles, req.Plots.Marks),
		priceLineLayer(ps, req.Candles),
		tableLayer(req.Candles),
	}, nil
}

func backgroundLayer(title string) Layer {
	return Layer{
		Tag:   LayerBackground,
		Rects: []Rect{{X0: 0, Y0: 0, X1: CanvasWidth, Y1: CanvasHeight, Fill: white}},
		Texts: []Text{{
			X: (plotLeft + plotRight) / 2, Y: titleHeight / 2,
			S: title, Size: 24, Color: black, Align: AlignCenter,
		}},
	}
}

func gridLayer(ts *TimeScale, ps *PriceScale, candles []model.Candle) Layer {
	l := Layer{Tag: LayerGrid}

	// Horizontal rules every half step, alternating weight.
	const hSteps = 8
	for i := 0; i <= hSteps*2; i++ {
		frac := float64(i) / float64(hSteps*2)
		y := plotTop + frac*(plotBottom-plotTop)
		stroke := gridLight
		if i%2 == 1 {
			stroke = gridFaint
		}
		l.Lines = append(l.Lines, Line{X0: plotLeft, Y0: y, X1: plotRight, Y1: y, Width: 1, Stroke: stroke})
	}

	// Vertical rules.
	const vSteps = 5
	for i := 0; i <= vSteps; i++ {
		x := plotLeft + float64(i)/vSteps*(plotRight-plotLeft)
		l.Lines = append(l.Lines, Line{X0: x, Y0: plotTop, X1: x, Y1: plotBottom, Width: 1, Stroke: gridVert})
	}

	// Axis strokes.
	l.Lines = append(l.Lines,
		Line{X0: plotRight, Y0: plotTop, X1: plotRight, Y1: plotBottom, Width: 1, Stroke: axisGray},
		Line{X0: plotLeft, Y0: plotBottom, X1: plotRight, Y1: plotBottom, Width: 1, Stroke: axisGray},
	)

	// Price labels on the right, at even pixel steps of the log axis.
	for i := 0; i <= hSteps; i++ {
		frac := float64(i) / hSteps
		y := plotTop + frac*(plotBottom-plotTop)
		l.Texts = append(l.Texts, Text{
			X: plotRight + 8, Y: y,
			S: formatAxisPrice(ps.Price(frac)), Size: 15, Color: labelGray, Align: AlignLeft,
		})
	}

	// Time labels along the bottom.
	const xLabels = 6
	step := len(candles) / xLabels
	if step < 1 {
		step = 1
	}
	for i := 0; i < len(candles); i += step {
		at := time.UnixMilli(candles[i].Timestamp)
		l.Texts = append(l.Texts, Text{
			X: ts.X(i), Y: plotBottom + 20,
			S: at.Format("01-02 15:04"), Size: 12, Color: labelGray, Align: AlignCenter,
		})
	}

	return l
}

func zonesLayer(ts *TimeScale, ps *PriceScale, zones []model.Zone) Layer {
	l := Layer{Tag: LayerZones}
	for _, z := range zones {
		xa, xb := ts.XAt(z.X1), ts.XAt(z.X2)
		ya, yb := ps.Y(z.Y1), ps.Y(z.Y2)
		l.Rects = append(l.Rects, Rect{
			X0: math.Min(xa, xb), Y0: math.Min(ya, yb),
			X1: math.Max(xa, xb), Y1: math.Max(ya, yb),
			Fill: z.Color,
		})
	}
	return l
}

func vlinesLayer(ts *TimeScale, vlines []model.VLine) Layer {
	l := Layer{Tag: LayerVLines}
	for _, v := range vlines {
		i, ok := ts.Lookup(v.Time)
		if !ok {
			continue
		}
		x := ts.X(i)
		l.Lines = append(l.Lines, Line{X0: x, Y0: plotTop, X1: x, Y1: plotBottom, Width: 1, Stroke: v.Color})
	}
	return l
}

func volumeLayer(ts *TimeScale, candles []model.Candle, volumeColors []string) Layer {
	l := Layer{Tag: LayerVolume}

	maxVolume := 0.0
	for _, c := range candles {
		maxVolume = math.Max(maxVolume, c.Volume)
	}
	if maxVolume <= 0 {
		return l
	}

	regionHeight := volumeRegionFrac * (plotBottom - plotTop)
	for i, c := range candles {
		fill := volumeGray
		if i < len(volumeColors) {
			fill = hexcolor.ParseOrGray(volumeColors[i])
		}
		fill.A = uint8(float64(fill.A) * volumeAlphaFrac)

		x := ts.X(i)
		h := c.Volume / maxVolume * regionHeight
		l.Rects = append(l.Rects, Rect{
			X0: x - ts.BodyHalf(), Y0: plotBottom - h,
			X1: x + ts.BodyHalf(), Y1: plotBottom,
			Fill: fill,
		})
	}
	return l
}

func wicksLayer(ts *TimeScale, ps *PriceScale, candles []model.Candle) Layer {
	l := Layer{Tag: LayerWicks}
	for i, c := range candles {
		x := ts.X(i)
		l.Rects = append(l.Rects, Rect{
			X0: x - ts.WickHalf(), Y0: ps.Y(c.High),
			X1: x + ts.WickHalf(), Y1: ps.Y(c.Low),
			Fill: wickGray,
		})
	}
	return l
}

func bodiesLayer(ts *TimeScale, ps *PriceScale, candles []model.Candle, candleColors []string) Layer {
	l := Layer{Tag: LayerBodies}
	for i, c := range candles {
		// A color array shorter than the series is a partial override, not an
		// error: unindexed candles render black, unparseable entries gray.
		fill := black
		if i < len(candleColors) {
			fill = hexcolor.ParseOrGray(candleColors[i])
		}

		x := ts.X(i)
		top := ps.Y(math.Max(c.Open, c.Close))
		bottom := ps.Y(math.Min(c.Open, c.Close))
		l.Rects = append(l.Rects, Rect{
			X0: x - ts.BodyHalf(), Y0: top,
			X1: x + ts.BodyHalf(), Y1: bottom,
			Fill: fill,
		})
	}
	return l
}

func markersLayer(ts *TimeScale, ps *PriceScale, candles []model.Candle, marks []model.Marker) Layer {
	l := Layer{Tag: LayerMarkers}
	for _, m := range marks {
		i, ok := ts.Lookup(m.Time)
		if !ok {
			continue
		}
		c := candles[i]
		x := ts.X(i)

		offset := 0.02 * (plotBottom - plotTop) * m.Size
		halfWidth := ts.Band() * bodyWidthFrac / 3 * m.Size
		halfHeight := offset / 2

		var center, textY float64
		var points []Point
		if m.Above {
			// "Signal from above": downward-pointing triangle over the high.
			center = ps.Y(c.High) - offset
			points = []Point{
				{X: x, Y: center + halfHeight},
				{X: x - halfWidth, Y: center - halfHeight},
				{X: x + halfWidth, Y: center - halfHeight},
			}
			textY = center - offset*1.2
		} else {
			center = ps.Y(c.Low) + offset
			points = []Point{
				{X: x, Y: center - halfHeight},
				{X: x - halfWidth, Y: center + halfHeight},
				{X: x + halfWidth, Y: center + halfHeight},
			}
			textY = center + offset*1.2
		}
		l.Polys = append(l.Polys, Poly{Points: points, Fill: m.Color})

		if m.Text != "" {
			l.Texts = append(l.Texts, Text{
				X: x, Y: textY,
				S: m.Text, Size: math.Max(8, 12*m.Size), Color: m.Color, Align: AlignCenter,
			})
		}
	}
	return l
}

func priceLineLayer(ps *PriceScale, candles []model.Candle) Layer {
	last := candles[len(candles)-1]
	prev := last
	if len(candles) > 1 {
		prev = candles[len(candles)-2]
	}

	stroke := upGreen
	if last.Close < prev.Close {
		stroke = downRed
	}

	y := ps.Y(last.Close)
	return Layer{
		Tag:   LayerPriceLine,
		Lines: []Line{{X0: plotLeft, Y0: y, X1: plotRight, Y1: y, Width: 1, Stroke: stroke}},
		Texts: []Text{{
			X: plotRight + 8, Y: y,
			S: formatPrice(last.Close), Size: 14, Color: stroke, Align: AlignLeft,
		}},
	}
}

func tableLayer(candles []model.Candle) Layer {
	last := candles[len(candles)-1]
	prev := last
	if len(candles) > 1 {
		prev = candles[len(candles)-2]
	}

	high := math.Inf(-1)
	for _, c := range candles {
		high = math.Max(high, c.High)
	}
	percentFromHigh := 0.0
	if high > 0 {
		percentFromHigh = (high - last.Close) / high * 100
	}

	tint := upGreen
	if last.Close < prev.Close {
		tint = downRed
	}

	rows := []struct {
		label string
		value string
		color color.NRGBA
	}{
		{"Current Price", formatPrice(last.Close), tint},
		{"High (in plot)", formatPrice(high), black},
		{"% from High", fmt.Sprintf("%.2f%%", percentFromHigh), black},
	}

	const (
		marginFrac = 0.15
		cellPad    = 5.0
		rowSpacing = 6.0
	)
	left := CanvasWidth * marginFrac
	right := CanvasWidth * (1 - marginFrac)
	mid := (left + right) / 2
	rowHeight := (tableHeight - rowSpacing*float64(len(rows)+1)) / float64(len(rows))

	l := Layer{Tag: LayerTable}
	for ri, row := range rows {
		y0 := titleHeight + rowSpacing + float64(ri)*(rowHeight+rowSpacing)
		yc := y0 + rowHeight/2
		l.Rects = append(l.Rects,
			Rect{X0: left + cellPad, Y0: y0, X1: mid - cellPad, Y1: y0 + rowHeight, Fill: cellGray},
			Rect{X0: mid + cellPad, Y0: y0, X1: right - cellPad, Y1: y0 + rowHeight, Fill: cellGray},
		)
		l.Texts = append(l.Texts,
			Text{X: left + cellPad*4, Y: yc, S: row.label, Size: 14, Color: row.color, Align: AlignLeft},
			Text{X: mid + cellPad*4, Y: yc, S: row.value, Size: 14, Color: row.color, Align: AlignLeft},
		)
	}
	return l
}

// formatPrice renders a price as whole dollars with thousands separators.
func formatPrice(p float64) string {
	return "$" + humanize.Comma(int64(math.Round(p)))
}

// formatAxisPrice rounds an axis label to a step fitting its magnitude.
func formatAxisPrice(p float64) string {
	var step float64
	switch {
	case p >= 100_000:
		step = 500
	case p >= 10_000:
		step = 100
	case p >= 1_000:
		step = 50
	default:
		step = 10
	}
	return formatPrice(math.Round(p/step) * step)
}
