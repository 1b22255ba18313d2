// Package chart derives pixel scales from a candle series, lays out the
// drawable primitives for each render layer, and composites them onto a
// fixed-size canvas.
package chart

import (
	"math"

	"gocharts/internal/model"
)

// Canvas geometry. The output raster is always 1280x960: a title strip and
// statistics table across the top, price labels on the right, time labels on
// the bottom, candles in the remaining plot area.
const (
	CanvasWidth  = 1280
	CanvasHeight = 960

	titleHeight  = 40
	tableHeight  = 100
	headerHeight = titleHeight + tableHeight

	plotMargin = 10
	axisWidth  = 80
	axisHeight = 40

	plotLeft   = float64(plotMargin)
	plotTop    = float64(headerHeight + plotMargin)
	plotRight  = float64(CanvasWidth - axisWidth - plotMargin)
	plotBottom = float64(CanvasHeight - axisHeight - plotMargin)
)

const (
	bodyWidthFrac    = 0.8  // candle body share of its band
	wickWidthFrac    = 0.15 // wick share of the body width
	volumeRegionFrac = 0.15 // plot height reserved for volume bars
	volumeAlphaFrac  = 0.8

	// Fallback band width in log space for a flat series, so a single-price
	// chart still renders a horizontal band instead of dividing by zero.
	flatSeriesPad = 0.01

	// Prices are clamped before taking logs; zero or negative inputs draw
	// degenerate geometry rather than producing NaN coordinates.
	minPositivePrice = 1e-12

	// Assumed bucket width when a single candle leaves the spacing undefined.
	defaultBucketMillis = 60_000
)

// TimeScale maps candle indices and timestamps to x pixel coordinates.
// Candle i occupies the band [i*W/N, (i+1)*W/N) of the plot width, centered
// in it. The mapping is immutable once built.
type TimeScale struct {
	n      int
	band   float64
	index  map[int64]int
	first  int64
	bucket float64
}

// NewTimeScale builds the time axis for an ordered candle series.
func NewTimeScale(candles []model.Candle) *TimeScale {
	n := len(candles)
	idx := make(map[int64]int, n)
	for i, c := range candles {
		idx[c.Timestamp] = i
	}
	bucket := float64(defaultBucketMillis)
	if n > 1 {
		bucket = float64(candles[n-1].Timestamp-candles[0].Timestamp) / float64(n-1)
	}
	return &TimeScale{
		n:      n,
		band:   (plotRight - plotLeft) / float64(n),
		index:  idx,
		first:  candles[0].Timestamp,
		bucket: bucket,
	}
}

// X returns the pixel x of candle i's band center.
func (t *TimeScale) X(i int) float64 {
	return plotLeft + (float64(i)+0.5)*t.band
}

// Band returns the pixel width allotted to one candle.
func (t *TimeScale) Band() float64 { return t.band }

// BodyHalf returns half the candle body width in pixels.
func (t *TimeScale) BodyHalf() float64 { return t.band * bodyWidthFrac / 2 }

// WickHalf returns half the wick width in pixels.
func (t *TimeScale) WickHalf() float64 { return t.band * bodyWidthFrac * wickWidthFrac / 2 }

// Lookup resolves a timestamp to its candle index. Only exact matches count;
// markers and vlines with unmatched timestamps are no-ops.
func (t *TimeScale) Lookup(ts int64) (int, bool) {
	i, ok := t.index[ts]
	return i, ok
}

// XAt maps an arbitrary timestamp to a pixel x on the continuous time axis,
// clamped to the plot. Zones span ranges rather than single candles, so they
// resolve through this instead of Lookup.
func (t *TimeScale) XAt(ts int64) float64 {
	t0 := float64(t.first) - t.bucket/2
	span := t.bucket * float64(t.n)
	x := plotLeft + (float64(ts)-t0)/span*(plotRight-plotLeft)
	return math.Min(math.Max(x, plotLeft), plotRight)
}

// PriceScale maps prices to y pixel coordinates under a logarithmic
// transform bounded by the series low and high. Derived once per request,
// immutable, and a pure function of the candle set.
type PriceScale struct {
	logMin float64
	logMax float64
}

// NewPriceScale derives the price axis from the candle series.
func NewPriceScale(candles []model.Candle) *PriceScale {
	minLow := math.Inf(1)
	maxHigh := math.Inf(-1)
	for _, c := range candles {
		low := math.Max(c.Low, minPositivePrice)
		high := math.Max(c.High, minPositivePrice)
		minLow = math.Min(minLow, low)
		maxHigh = math.Max(maxHigh, high)
	}

	logMin := math.Log(minLow)
	logMax := math.Log(maxHigh)
	if logMin == logMax {
		logMin -= flatSeriesPad
		logMax += flatSeriesPad
	}
	return &PriceScale{logMin: logMin, logMax: logMax}
}

// Y maps a price to its pixel y. The series high lands on the plot top, the
// series low on the plot bottom, and y decreases monotonically as price grows.
func (p *PriceScale) Y(price float64) float64 {
	lp := math.Log(math.Max(price, minPositivePrice))
	return plotTop + (plotBottom-plotTop)*(p.logMax-lp)/(p.logMax-p.logMin)
}

// Price inverts the scale for a pixel fraction in [0, 1], 0 being the top.
// Used to place grid price labels at even pixel steps.
func (p *PriceScale) Price(frac float64) float64 {
	return math.Exp(p.logMax - frac*(p.logMax-p.logMin))
}

// Top and Bottom bound the drawable price region in pixels.
func (p *PriceScale) Top() float64    { return plotTop }
func (p *PriceScale) Bottom() float64 { return plotBottom }
