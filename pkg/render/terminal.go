package render

import (
	"image"

	uv "github.com/charmbracelet/ultraviolet"
)

// DrawImage draws img into area of a terminal screen. Each cell shows two
// image rows with an upper half block: foreground is the top pixel and
// background the bottom one. The image should be area.Dx() wide and
// 2*area.Dy() tall; ScaleImage produces such an image.
func DrawImage(scr uv.Screen, area uv.Rectangle, img *image.RGBA) {
	b := img.Bounds()
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := b.Min.Y + (row-area.Min.Y)*2
		botY := topY + 1
		if topY >= b.Max.Y {
			break
		}

		for col := area.Min.X; col < area.Max.X; col++ {
			x := b.Min.X + col - area.Min.X
			if x >= b.Max.X {
				break
			}

			cell := &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: img.RGBAAt(x, topY),
				},
			}
			if botY < b.Max.Y {
				cell.Style.Bg = img.RGBAAt(x, botY)
			}
			scr.SetCell(col, row, cell)
		}
	}
}

// FramebufferSize returns the surface size that fills a terminal of cols x
// rows cells with half-block rendering.
func FramebufferSize(cols, rows int) (width, height int) {
	return cols, rows * 2
}
