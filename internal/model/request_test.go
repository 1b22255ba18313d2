package model

import (
	"encoding/json"
	"errors"
	"testing"

	"gocharts/internal/hexcolor"
)

const validRequest = `{
	"title": "BTC 4h",
	"ticker": "BTCUSD",
	"timeframe": "4h",
	"cols": ["timestamp", "open", "high", "low", "close", "volume"],
	"data": [
		[1700000000000, 100, 110, 90, 105, 10],
		[1700014400000, 105, 108, 95, 100, 20]
	],
	"candle_colors": ["#FF0000", "#00FF00"],
	"plots": {},
	"desc": "test chart"
}`

func TestDecodeRequest_Valid(t *testing.T) {
	req, err := DecodeRequest([]byte(validRequest))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Ticker != "BTCUSD" || req.Timeframe != "4h" {
		t.Errorf("ticker/timeframe = %q/%q", req.Ticker, req.Timeframe)
	}
	if len(req.Candles) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(req.Candles))
	}
	c := req.Candles[0]
	if c.Timestamp != 1700000000000 || c.Open != 100 || c.High != 110 || c.Low != 90 || c.Close != 105 || c.Volume != 10 {
		t.Errorf("candle 0 decoded wrong: %+v", c)
	}
	if req.ChatID != nil || req.SubscriberList != "" || req.ImageFilename != "" {
		t.Error("optional fields should default to empty")
	}
}

func TestDecodeRequest_MalformedJSON(t *testing.T) {
	if _, err := DecodeRequest([]byte("{not json")); !errors.Is(err, ErrMalformedRequest) {
		t.Errorf("expected ErrMalformedRequest, got %v", err)
	}
}

func TestDecodeRequest_MissingRequiredFields(t *testing.T) {
	for _, field := range []string{"title", "ticker", "timeframe", "cols", "data", "candle_colors", "plots", "desc"} {
		raw := map[string]any{
			"title": "t", "ticker": "T", "timeframe": "1h",
			"cols":          []string{"timestamp", "open", "high", "low", "close", "volume"},
			"data":          [][]float64{{1, 2, 3, 1, 2, 5}},
			"candle_colors": []string{"#FF0000"},
			"plots":         map[string]any{},
			"desc":          "d",
		}
		delete(raw, field)
		if _, err := DecodeRequest(mustJSON(t, raw)); !errors.Is(err, ErrSchema) {
			t.Errorf("missing %q: expected ErrSchema, got %v", field, err)
		}
	}
}

func TestDecodeRequest_WrongFieldType(t *testing.T) {
	bad := `{"title": 42, "ticker": "T", "timeframe": "1h", "cols": [], "data": [], "candle_colors": [], "plots": {}, "desc": "d"}`
	if _, err := DecodeRequest([]byte(bad)); !errors.Is(err, ErrSchema) {
		t.Errorf("expected ErrSchema for mistyped title, got %v", err)
	}
}

func TestDecodeRequest_ShortDataRow(t *testing.T) {
	bad := `{"title": "t", "ticker": "T", "timeframe": "1h",
		"cols": ["timestamp", "open", "high", "low", "close", "volume"],
		"data": [[1700000000000, 100, 110, 90]],
		"candle_colors": [], "plots": {}, "desc": "d"}`
	if _, err := DecodeRequest([]byte(bad)); !errors.Is(err, ErrSchema) {
		t.Errorf("expected ErrSchema for short row, got %v", err)
	}
}

func TestDecodeRequest_VolumeColumnOptional(t *testing.T) {
	raw := `{"title": "t", "ticker": "T", "timeframe": "1h",
		"cols": ["timestamp", "open", "high", "low", "close"],
		"data": [[1700000000000, 100, 110, 90, 105]],
		"candle_colors": ["#FF0000"], "plots": {}, "desc": "d"}`
	req, err := DecodeRequest([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Candles[0].Volume != 0 {
		t.Errorf("missing volume should decode to 0, got %f", req.Candles[0].Volume)
	}
}

func TestDecodeRequest_ColorLengthMismatchTolerated(t *testing.T) {
	raw := `{"title": "t", "ticker": "T", "timeframe": "1h",
		"cols": ["timestamp", "open", "high", "low", "close", "volume"],
		"data": [[1, 100, 110, 90, 105, 10], [2, 105, 108, 95, 100, 20]],
		"candle_colors": ["#FF0000"], "plots": {}, "desc": "d"}`
	req, err := DecodeRequest([]byte(raw))
	if err != nil {
		t.Fatalf("length mismatch should not fail: %v", err)
	}
	if len(req.CandleColors) != 1 {
		t.Errorf("expected candle colors preserved as-is, got %d", len(req.CandleColors))
	}
}

func TestDecodePlots(t *testing.T) {
	raw := `{"title": "t", "ticker": "T", "timeframe": "1h",
		"cols": ["timestamp", "open", "high", "low", "close", "volume"],
		"data": [[1, 100, 110, 90, 105, 10]],
		"candle_colors": ["#FF0000"],
		"plots": {
			"marks": [
				{"time": 1, "position": "above", "color": "#FF0000", "text": "4h", "size": 2},
				{"time": 1, "position": "below", "color": "#00FF00"}
			],
			"zones": [{"x1": 1, "x2": 2, "y1": 100, "y2": 90, "color": "#0000FF"}],
			"vlines": [{"time": 1, "color": "#AA00AA"}]
		},
		"desc": "d"}`
	req, err := DecodeRequest([]byte(raw))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(req.Plots.Marks) != 2 {
		t.Fatalf("expected 2 marks, got %d", len(req.Plots.Marks))
	}
	if !req.Plots.Marks[0].Above || req.Plots.Marks[0].Size != 2 || req.Plots.Marks[0].Text != "4h" {
		t.Errorf("mark 0 decoded wrong: %+v", req.Plots.Marks[0])
	}
	if req.Plots.Marks[1].Size != 1.0 {
		t.Errorf("omitted mark size should default to 1.0, got %f", req.Plots.Marks[1].Size)
	}
	if req.Plots.Marks[1].Above {
		t.Error("mark 1 should be below")
	}

	if len(req.Plots.Zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(req.Plots.Zones))
	}
	if req.Plots.Zones[0].Color.A != hexcolor.ZoneAlpha {
		t.Errorf("zone without explicit alpha should default to %d, got %d",
			hexcolor.ZoneAlpha, req.Plots.Zones[0].Color.A)
	}

	if len(req.Plots.VLines) != 1 {
		t.Fatalf("expected 1 vline, got %d", len(req.Plots.VLines))
	}
	if req.Plots.VLines[0].Color.A != 255 {
		t.Error("vline color should default to full opacity")
	}
}

func TestDecodePlots_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		plots string
		want  error
	}{
		{"bad position", `{"marks": [{"time": 1, "position": "left", "color": "#FF0000"}]}`, ErrSchema},
		{"missing mark time", `{"marks": [{"position": "above", "color": "#FF0000"}]}`, ErrSchema},
		{"bad mark color", `{"marks": [{"time": 1, "position": "above", "color": "red"}]}`, hexcolor.ErrInvalidColor},
		{"bad zone color", `{"zones": [{"x1": 1, "x2": 2, "y1": 1, "y2": 2, "color": "zzz"}]}`, hexcolor.ErrInvalidColor},
		{"missing zone coord", `{"zones": [{"x1": 1, "y1": 1, "y2": 2, "color": "#FF0000"}]}`, ErrSchema},
		{"bad vline color", `{"vlines": [{"time": 1, "color": "#12345"}]}`, hexcolor.ErrInvalidColor},
		{"missing vline time", `{"vlines": [{"color": "#FF0000"}]}`, ErrSchema},
	}
	for _, tt := range tests {
		raw := `{"title": "t", "ticker": "T", "timeframe": "1h",
			"cols": ["timestamp", "open", "high", "low", "close", "volume"],
			"data": [[1, 100, 110, 90, 105, 10]],
			"candle_colors": [], "plots": ` + tt.plots + `, "desc": "d"}`
		if _, err := DecodeRequest([]byte(raw)); !errors.Is(err, tt.want) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, err)
		}
	}
}

func TestDecodeEnvelope(t *testing.T) {
	kind, op, payload, err := DecodeEnvelope([]byte(`["chart", "request", {"title": "x"}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != "chart" || op != "request" {
		t.Errorf("kind/op = %q/%q", kind, op)
	}
	if string(payload) != `{"title": "x"}` {
		t.Errorf("payload = %s", payload)
	}
}

func TestDecodeEnvelope_Invalid(t *testing.T) {
	for _, in := range []string{`not json`, `{"a": 1}`, `["chart"]`, `[1, 2, {}]`} {
		if _, _, _, err := DecodeEnvelope([]byte(in)); !errors.Is(err, ErrMalformedRequest) {
			t.Errorf("DecodeEnvelope(%q): expected ErrMalformedRequest, got %v", in, err)
		}
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
