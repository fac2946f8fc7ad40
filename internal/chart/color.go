package chart

import (
	"fmt"
	"math"
	"strconv"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	hueStep    = 137.5
	saturation = 0.70
	lightness  = 0.50
)

// Color returns the CSS colour for series or slice i: the hue rotates by 137.5
// degrees per index at fixed saturation and lightness.
func Color(i int, alpha float64) string {
	return fmt.Sprintf("hsla(%s, 70%%, 50%%, %s)", trimFloat(hue(i)), trimFloat(alpha))
}

// RGBA converts the same colour to an 8-bit drawing colour for raster output.
func RGBA(i int, alpha float64) drawing.Color {
	r, g, b := hslToRGB(math.Mod(hue(i), 360)/360, saturation, lightness)
	return drawing.Color{R: r, G: g, B: b, A: uint8(math.Round(clamp01(alpha) * 255))}
}

func hue(i int) float64 { return float64(i) * hueStep }

func trimFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func clamp01(f float64) float64 { return math.Max(0, math.Min(1, f)) }

func hslToRGB(h, s, l float64) (uint8, uint8, uint8) {
	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	conv := func(t float64) uint8 {
		if t < 0 {
			t++
		}
		if t > 1 {
			t--
		}
		var v float64
		switch {
		case t < 1.0/6:
			v = p + (q-p)*6*t
		case t < 0.5:
			v = q
		case t < 2.0/3:
			v = p + (q-p)*(2.0/3-t)*6
		default:
			v = p
		}
		return uint8(math.Round(v * 255))
	}
	return conv(h + 1.0/3), conv(h), conv(h - 1.0/3)
}
