// Package hexcolor resolves #RRGGBB / #RRGGBBAA color strings into RGBA
// values. Defaulting of the omitted alpha channel is driven by a policy so
// call sites do not duplicate fallback rules.
package hexcolor

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Policy selects the alpha applied when a 6-digit color omits it.
type Policy int

const (
	// DefaultOpaque gives 6-digit colors full opacity.
	DefaultOpaque Policy = iota
	// DefaultZoneAlpha gives 6-digit colors 30% opacity. Zones are the only
	// layer using this policy.
	DefaultZoneAlpha
)

// ZoneAlpha is 30% of 255.
const ZoneAlpha = 76

// ErrInvalidColor reports a string that is not a valid hex color.
var ErrInvalidColor = errors.New("invalid color")

// Gray is the neutral fallback used by lenient call sites.
var Gray = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

// Parse resolves a hex color string. The leading '#' is optional and hex
// digits are case-insensitive. Colors are returned non-premultiplied so the
// alpha channel survives into compositing unchanged.
func Parse(s string, policy Policy) (color.NRGBA, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}

	if len(hex) == 8 {
		return color.NRGBA{
			R: uint8(v >> 24),
			G: uint8(v >> 16),
			B: uint8(v >> 8),
			A: uint8(v),
		}, nil
	}

	a := uint8(255)
	if policy == DefaultZoneAlpha {
		a = ZoneAlpha
	}
	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: a,
	}, nil
}

// ParseOrGray resolves a hex color with full-opacity defaulting, substituting
// gray when the string does not parse. Used on per-candle color arrays where
// one bad element should not abort the whole chart.
func ParseOrGray(s string) color.NRGBA {
	c, err := Parse(s, DefaultOpaque)
	if err != nil {
		return Gray
	}
	return c
}
