package artifact

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"gocharts/internal/model"
)

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func TestFilename(t *testing.T) {
	tests := []struct {
		name string
		req  model.ChartRequest
		want string
	}{
		{"default", model.ChartRequest{Ticker: "BTCUSD", Timeframe: "4h"}, "BTCUSD_4h.png"},
		{"override", model.ChartRequest{Ticker: "BTCUSD", Timeframe: "4h", ImageFilename: "job-42.png"}, "job-42.png"},
	}
	for _, tt := range tests {
		if got := Filename(&tt.req); got != tt.want {
			t.Errorf("%s: Filename = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestWrite(t *testing.T) {
	dir := t.TempDir()
	req := &model.ChartRequest{Ticker: "ETHUSD", Timeframe: "1d"}

	art, err := Write(dir, req, testImage())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Path != filepath.Join(dir, "ETHUSD_1d.png") {
		t.Errorf("path = %q", art.Path)
	}
	if art.Ticker != "ETHUSD" || art.Timeframe != "1d" {
		t.Errorf("artifact metadata = %+v", art)
	}

	f, err := os.Open(art.Path)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("artifact is not a valid PNG: %v", err)
	}
}

func TestWrite_DistinctFilenamesNeverCollide(t *testing.T) {
	dir := t.TempDir()
	a := &model.ChartRequest{Ticker: "BTCUSD", Timeframe: "4h", ImageFilename: "a.png"}
	b := &model.ChartRequest{Ticker: "BTCUSD", Timeframe: "4h", ImageFilename: "b.png"}

	artA, err := Write(dir, a, testImage())
	if err != nil {
		t.Fatalf("write a: %v", err)
	}
	artB, err := Write(dir, b, testImage())
	if err != nil {
		t.Fatalf("write b: %v", err)
	}
	if artA.Path == artB.Path {
		t.Fatal("distinct image_filename values must produce distinct paths")
	}
	for _, p := range []string{artA.Path, artB.Path} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("artifact %s missing: %v", p, err)
		}
	}
}

func TestWrite_UnwritableDirectory(t *testing.T) {
	req := &model.ChartRequest{Ticker: "BTCUSD", Timeframe: "4h"}
	_, err := Write(filepath.Join(t.TempDir(), "does", "not", "exist"), req, testImage())
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}
