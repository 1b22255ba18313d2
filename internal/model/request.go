// Package model defines the chart request wire format and its validation.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"

	"gocharts/internal/hexcolor"
)

// Request-scoped error taxonomy. Every failure aborts exactly one request.
var (
	// ErrMalformedRequest reports an undecodable payload.
	ErrMalformedRequest = errors.New("malformed request")
	// ErrSchema reports a decodable payload with missing or mistyped fields.
	ErrSchema = errors.New("schema error")
	// ErrEmptySeries reports a request whose candle array is empty.
	ErrEmptySeries = errors.New("empty candle series")
)

// Marker positions.
const (
	PositionAbove = "above"
	PositionBelow = "below"
)

// Candle is one OHLCV bar. Timestamp is milliseconds since the epoch.
// low <= open,close <= high is assumed, not enforced; a malformed bar draws a
// degenerate wick rather than failing the request.
type Candle struct {
	Timestamp int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Marker annotates a single candle with a triangle and optional label.
// Position "above" draws a downward-pointing triangle above the candle high,
// "below" an upward-pointing one below the low. A Time matching no candle
// makes the marker a no-op.
type Marker struct {
	Time  int64
	Above bool
	Color color.NRGBA
	Text  string
	Size  float64
}

// Zone is a semi-transparent rectangular price/time region. Coordinate order
// is not enforced; the renderer normalizes min/max.
type Zone struct {
	X1, X2 int64
	Y1, Y2 float64
	Color  color.NRGBA
}

// VLine is a full-height vertical stroke at a candle timestamp. A Time
// matching no candle makes it a no-op.
type VLine struct {
	Time  int64
	Color color.NRGBA
}

// Plots holds the overlay arrays. All are optional.
type Plots struct {
	Marks  []Marker
	Zones  []Zone
	VLines []VLine
}

// ChartRequest is one fully validated render job. It is owned by a single
// pipeline run and never mutated after validation.
type ChartRequest struct {
	Title          string
	Ticker         string
	Timeframe      string
	Candles        []Candle
	CandleColors   []string
	VolumeColors   []string
	Plots          Plots
	Desc           string
	ChatID         *int64
	SubscriberList string
	ImageFilename  string
}

// Raw shapes use pointers for the required fields so absence is
// distinguishable from zero values.
type rawRequest struct {
	Title          *string     `json:"title"`
	Ticker         *string     `json:"ticker"`
	Timeframe      *string     `json:"timeframe"`
	Cols           []string    `json:"cols"`
	Data           [][]float64 `json:"data"`
	CandleColors   []string    `json:"candle_colors"`
	VolumeColors   []string    `json:"volume_colors"`
	Plots          *rawPlots   `json:"plots"`
	Desc           *string     `json:"desc"`
	ChatID         *int64      `json:"chat_id"`
	SubscriberList string      `json:"subscriber_list"`
	ImageFilename  string      `json:"image_filename"`
}

type rawPlots struct {
	Marks  []rawMarker `json:"marks"`
	Zones  []rawZone   `json:"zones"`
	VLines []rawVLine  `json:"vlines"`
}

type rawMarker struct {
	Time     *int64  `json:"time"`
	Position string  `json:"position"`
	Color    string  `json:"color"`
	Text     string  `json:"text"`
	Size     float64 `json:"size"`
}

type rawZone struct {
	X1    *int64   `json:"x1"`
	X2    *int64   `json:"x2"`
	Y1    *float64 `json:"y1"`
	Y2    *float64 `json:"y2"`
	Color string   `json:"color"`
}

type rawVLine struct {
	Time  *int64 `json:"time"`
	Color string `json:"color"`
}

// DecodeEnvelope unwraps the final transport frame, a JSON array of the form
// ["chart", "request", {...}], and returns its parts. The routing and
// delimiter frames are the transport layer's business, not ours.
func DecodeEnvelope(frame []byte) (kind, op string, payload []byte, err error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(frame, &parts); err != nil {
		return "", "", nil, fmt.Errorf("%w: envelope: %v", ErrMalformedRequest, err)
	}
	if len(parts) < 3 {
		return "", "", nil, fmt.Errorf("%w: envelope has %d parts, want 3", ErrMalformedRequest, len(parts))
	}
	if err := json.Unmarshal(parts[0], &kind); err != nil {
		return "", "", nil, fmt.Errorf("%w: envelope kind: %v", ErrMalformedRequest, err)
	}
	if err := json.Unmarshal(parts[1], &op); err != nil {
		return "", "", nil, fmt.Errorf("%w: envelope op: %v", ErrMalformedRequest, err)
	}
	return kind, op, parts[2], nil
}

// DecodeRequest decodes and validates a raw ChartRequest object.
//
// Length mismatches between candle_colors / volume_colors and data are
// tolerated: missing colors fall back to defaults at layout time. Overlay
// colors are strict and abort the request when unparseable.
func DecodeRequest(data []byte) (*ChartRequest, error) {
	var raw rawRequest
	if err := json.Unmarshal(data, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, fmt.Errorf("%w: field %q: %v", ErrSchema, typeErr.Field, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}

	for name, p := range map[string]*string{
		"title": raw.Title, "ticker": raw.Ticker, "timeframe": raw.Timeframe, "desc": raw.Desc,
	} {
		if p == nil {
			return nil, fmt.Errorf("%w: missing required field %q", ErrSchema, name)
		}
	}
	if raw.Cols == nil {
		return nil, fmt.Errorf("%w: missing required field %q", ErrSchema, "cols")
	}
	if raw.Data == nil {
		return nil, fmt.Errorf("%w: missing required field %q", ErrSchema, "data")
	}
	if raw.CandleColors == nil {
		return nil, fmt.Errorf("%w: missing required field %q", ErrSchema, "candle_colors")
	}
	if raw.Plots == nil {
		return nil, fmt.Errorf("%w: missing required field %q", ErrSchema, "plots")
	}

	candles := make([]Candle, len(raw.Data))
	for i, row := range raw.Data {
		// Row order is documented by cols: [timestamp, open, high, low, close, volume].
		if len(row) < 5 {
			return nil, fmt.Errorf("%w: data row %d has %d columns, want at least 5", ErrSchema, i, len(row))
		}
		c := Candle{
			Timestamp: int64(row[0]),
			Open:      row[1],
			High:      row[2],
			Low:       row[3],
			Close:     row[4],
		}
		if len(row) > 5 {
			c.Volume = row[5]
		}
		candles[i] = c
	}

	plots, err := decodePlots(raw.Plots)
	if err != nil {
		return nil, err
	}

	return &ChartRequest{
		Title:          *raw.Title,
		Ticker:         *raw.Ticker,
		Timeframe:      *raw.Timeframe,
		Candles:        candles,
		CandleColors:   raw.CandleColors,
		VolumeColors:   raw.VolumeColors,
		Plots:          plots,
		Desc:           *raw.Desc,
		ChatID:         raw.ChatID,
		SubscriberList: raw.SubscriberList,
		ImageFilename:  raw.ImageFilename,
	}, nil
}

func decodePlots(raw *rawPlots) (Plots, error) {
	var p Plots

	for i, m := range raw.Marks {
		if m.Time == nil {
			return p, fmt.Errorf("%w: marks[%d]: missing time", ErrSchema, i)
		}
		if m.Position != PositionAbove && m.Position != PositionBelow {
			return p, fmt.Errorf("%w: marks[%d]: position %q, want %q or %q",
				ErrSchema, i, m.Position, PositionAbove, PositionBelow)
		}
		c, err := hexcolor.Parse(m.Color, hexcolor.DefaultOpaque)
		if err != nil {
			return p, fmt.Errorf("marks[%d]: %w", i, err)
		}
		size := m.Size
		if size <= 0 {
			size = 1.0
		}
		p.Marks = append(p.Marks, Marker{
			Time:  *m.Time,
			Above: m.Position == PositionAbove,
			Color: c,
			Text:  m.Text,
			Size:  size,
		})
	}

	for i, z := range raw.Zones {
		if z.X1 == nil || z.X2 == nil || z.Y1 == nil || z.Y2 == nil {
			return p, fmt.Errorf("%w: zones[%d]: missing coordinate", ErrSchema, i)
		}
		c, err := hexcolor.Parse(z.Color, hexcolor.DefaultZoneAlpha)
		if err != nil {
			return p, fmt.Errorf("zones[%d]: %w", i, err)
		}
		p.Zones = append(p.Zones, Zone{X1: *z.X1, X2: *z.X2, Y1: *z.Y1, Y2: *z.Y2, Color: c})
	}

	for i, v := range raw.VLines {
		if v.Time == nil {
			return p, fmt.Errorf("%w: vlines[%d]: missing time", ErrSchema, i)
		}
		c, err := hexcolor.Parse(v.Color, hexcolor.DefaultOpaque)
		if err != nil {
			return p, fmt.Errorf("vlines[%d]: %w", i, err)
		}
		p.VLines = append(p.VLines, VLine{Time: *v.Time, Color: c})
	}

	return p, nil
}
