// Package artifact decides output filenames and persists rendered charts.
package artifact

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"gocharts/internal/model"
)

// ErrIO reports a failed artifact write. Fatal for the request; never retried.
var ErrIO = errors.New("artifact io error")

// Artifact describes one written chart image.
type Artifact struct {
	Path      string
	Ticker    string
	Timeframe string
}

// Filename returns the output name for a request. An explicit image_filename
// is used verbatim, which is the caller's tool for collision-free concurrent
// writes; the {ticker}_{timeframe}.png default is last-writer-wins.
func Filename(req *model.ChartRequest) string {
	if req.ImageFilename != "" {
		return req.ImageFilename
	}
	return fmt.Sprintf("%s_%s.png", req.Ticker, req.Timeframe)
}

// Write encodes the image as PNG into the configured directory and returns
// the artifact descriptor.
func Write(dir string, req *model.ChartRequest, img image.Image) (*Artifact, error) {
	path := filepath.Join(dir, Filename(req))

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w: %w", path, ErrIO, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return nil, fmt.Errorf("encode %s: %w: %w", path, ErrIO, err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w: %w", path, ErrIO, err)
	}

	return &Artifact{Path: path, Ticker: req.Ticker, Timeframe: req.Timeframe}, nil
}
