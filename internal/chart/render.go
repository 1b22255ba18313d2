package chart

import (
	"image"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"

	"gocharts/internal/model"
)

// Render validates the series, builds every layer, and composites them in the
// fixed back-to-front order onto a 1280x960 canvas. The result is produced
// whole: any failure happens before the first primitive is drawn.
func Render(req *model.ChartRequest) (image.Image, error) {
	layers, err := BuildLayers(req)
	if err != nil {
		return nil, err
	}

	dc := gg.NewContext(CanvasWidth, CanvasHeight)
	for _, layer := range layers {
		drawLayer(dc, layer)
	}
	return dc.Image(), nil
}

func drawLayer(dc *gg.Context, l Layer) {
	for _, r := range l.Rects {
		dc.SetColor(r.Fill)
		dc.DrawRectangle(r.X0, r.Y0, r.X1-r.X0, r.Y1-r.Y0)
		dc.Fill()
	}
	for _, ln := range l.Lines {
		dc.SetColor(ln.Stroke)
		dc.SetLineWidth(ln.Width)
		dc.DrawLine(ln.X0, ln.Y0, ln.X1, ln.Y1)
		dc.Stroke()
	}
	for _, p := range l.Polys {
		if len(p.Points) == 0 {
			continue
		}
		dc.SetColor(p.Fill)
		dc.MoveTo(p.Points[0].X, p.Points[0].Y)
		for _, pt := range p.Points[1:] {
			dc.LineTo(pt.X, pt.Y)
		}
		dc.ClosePath()
		dc.Fill()
	}
	for _, t := range l.Texts {
		dc.SetFontFace(face(t.Size))
		dc.SetColor(t.Color)
		ax := 0.0
		switch t.Align {
		case AlignCenter:
			ax = 0.5
		case AlignRight:
			ax = 1.0
		}
		dc.DrawStringAnchored(t.S, t.X, t.Y, ax, 0.35)
	}
}

var (
	fontOnce sync.Once
	fontTTF  *truetype.Font
)

// face returns a Go Regular face at the given point size, falling back to the
// fixed 7x13 face if the embedded font fails to parse.
func face(points float64) font.Face {
	fontOnce.Do(func() {
		f, err := truetype.Parse(goregular.TTF)
		if err == nil {
			fontTTF = f
		}
	})
	if fontTTF == nil {
		return basicfont.Face7x13
	}
	return truetype.NewFace(fontTTF, &truetype.Options{Size: points})
}
