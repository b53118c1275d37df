package main

import (
	"fmt"
	"image/color"
	"strings"
	"time"

	uv "github.com/charmbracelet/ultraviolet"

	"github.com/taigrr/softrend/pkg/render"
)

var (
	statusFg = color.RGBA{R: 0x55, G: 0xff, B: 0x55, A: 0xff}
	statusBg = color.RGBA{A: 0xff}
)

// fpsCounter averages the frame rate over windows of one second.
type fpsCounter struct {
	fps    float64
	frames int
	since  time.Time
}

// tick counts a frame shown at now and returns the current rate.
func (c *fpsCounter) tick(now time.Time) float64 {
	if c.since.IsZero() {
		c.since = now
	}
	c.frames++
	if elapsed := now.Sub(c.since); elapsed >= time.Second {
		c.fps = float64(c.frames) / elapsed.Seconds()
		c.frames = 0
		c.since = now
	}
	return c.fps
}

func check(on bool) string {
	if on {
		return "[✓]"
	}
	return "[ ]"
}

// statusLine formats the frame rate, the vertices emitted by the last frame
// and the draw toggles.
func statusLine(fps float64, vertices int, opts render.Options, textured, depth bool) string {
	return fmt.Sprintf(" %.0f FPS  %d verts  %s Texture  %s Bilinear  %s Lighting  %s Multithread  %s Depth ",
		fps, vertices,
		check(textured), check(opts.Bilinear), check(opts.Lighting), check(opts.Multithread), check(depth))
}

// drawStatus writes line over the top row of area, padded to its width
// and cut where it overflows.
func drawStatus(scr uv.Screen, area uv.Rectangle, line string) {
	if area.Dy() <= 0 {
		return
	}
	runes := []rune(line)
	if pad := area.Dx() - len(runes); pad > 0 {
		runes = append(runes, []rune(strings.Repeat(" ", pad))...)
	}

	for i, r := range runes[:max(area.Dx(), 0)] {
		scr.SetCell(area.Min.X+i, area.Min.Y, &uv.Cell{
			Content: string(r),
			Width:   1,
			Style:   uv.Style{Fg: statusFg, Bg: statusBg, Attrs: uv.AttrBold},
		})
	}
}
