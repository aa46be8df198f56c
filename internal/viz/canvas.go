package viz

import (
	"math"
	"strings"

	"github.com/san-kum/m1oa/internal/balance"
	"github.com/san-kum/m1oa/internal/dynamo"
)

const brailleBlank = 0x2800

// Braille dots per cell: 2 wide, 4 tall.
//
//	1 4
//	2 5
//	3 6
//	7 8
var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set lights the sub-pixel (x, y); the canvas is Width*2 by Height*4
// sub-pixels.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= pixelMap[y%4][x%2]
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Footprint plots the actuators of l seen from above. An actuator is drawn
// when its |force| is at least frac of the largest |force|; frac 0 draws all.
func Footprint(c *Canvas, l *balance.Layout, f *dynamo.Forces, frac float64) {
	c.Clear()
	peak := f.MaxAbs()
	w, h := float64(c.Width*2-1), float64(c.Height*4-1)
	for i, p := range l.Pos {
		if frac > 0 && !(math.Abs(f[i]) >= frac*peak) {
			continue
		}
		x := (p[0]/balance.SegmentRadius + 1) / 2 * w
		y := (1 - (p[1]/balance.SegmentRadius+1)/2) * h
		c.Set(int(math.Round(x)), int(math.Round(y)))
	}
}
