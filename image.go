package searchtree

import (
	"image"
	"image/color"
	"image/draw"
	"os"

	"golang.org/x/image/bmp"
)

// Image writes a BMP snapshot of a rectangle-regioned tree to path, node
// regions in red and value bounds in green. Call it only while no
// rebalance pass is in flight. An empty tree writes nothing.
func Image[V Entity](t *Tree[V, Rect], path string) error {
	if t.root == nil {
		return nil
	}

	r := t.root.region
	frame := image.NewRGBA(image.Rect(int(r.X), int(r.Y), int(r.X+r.Width)+1, int(r.Y+r.Height)+1))
	draw.Draw(frame, frame.Bounds(), &image.Uniform{color.Black}, image.Point{}, draw.Src)
	col := color.RGBA{255, 0, 0, 255}

	HLine := func(x1, y, x2 int) {
		for ; x1 <= x2; x1++ {
			frame.Set(x1, y, col)
		}
	}

	VLine := func(x, y1, y2 int) {
		for ; y1 <= y2; y1++ {
			frame.Set(x, y1, col)
		}
	}

	// Outline draws a rectangle utilizing HLine() and VLine()
	Outline := func(b Rect) {
		x1, y1 := int(b.X), int(b.Y)
		x2, y2 := int(b.X+b.Width), int(b.Y+b.Height)
		HLine(x1, y1, x2)
		HLine(x1, y2, x2)
		VLine(x1, y1, y2)
		VLine(x2, y1, y2)
	}

	t.root.walk(func(n *node[V, Rect]) {
		Outline(n.region)
	})

	col = color.RGBA{0, 255, 0, 255}
	for _, v := range t.Values() {
		Outline(v.Bounds())
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return bmp.Encode(f, frame)
}
