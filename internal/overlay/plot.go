package overlay

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ayusman/acedistance/internal/grid"
)

var (
	nodeColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	cellColor = color.RGBA{R: 60, G: 110, B: 200, A: 255}
)

// PlotGrid builds a diagnostic plot of the nodes and closed cells of layout
// in pixel space. The y axis is inverted to match image orientation.
func PlotGrid(layout *grid.Layout) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Layout %s (%dx%d nodes, %.2fm spacing)",
		layout.Name(), layout.Rows(), layout.Cols(), layout.DistanceBetweenNodes())
	p.X.Label.Text = "x (px)"
	p.Y.Label.Text = "y (px)"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Add(plotter.NewGrid())

	for _, c := range layout.Cells() {
		if !c.Closed() {
			continue
		}
		tl, tr, br, bl := c.Corners()
		outline := plotter.XYs{
			{X: tl.X, Y: tl.Y}, {X: tr.X, Y: tr.Y}, {X: br.X, Y: br.Y}, {X: bl.X, Y: bl.Y}, {X: tl.X, Y: tl.Y},
		}
		line, err := plotter.NewLine(outline)
		if err != nil {
			return nil, err
		}
		line.Color = cellColor
		line.Width = vg.Points(0.5)
		p.Add(line)
	}

	var nodes plotter.XYs
	for _, row := range layout.Nodes() {
		for _, n := range row {
			if n != nil {
				nodes = append(nodes, plotter.XY{X: n.X, Y: n.Y})
			}
		}
	}
	if len(nodes) > 0 {
		scatter, err := plotter.NewScatter(nodes)
		if err != nil {
			return nil, err
		}
		scatter.GlyphStyle.Color = nodeColor
		scatter.GlyphStyle.Shape = draw.CircleGlyph{}
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add("nodes", scatter)
	}

	p.Legend.Top = true
	return p, nil
}

// SaveGridPlot renders PlotGrid(layout) to path. The format follows the
// file extension.
func SaveGridPlot(layout *grid.Layout, path string) error {
	p, err := PlotGrid(layout)
	if err != nil {
		return err
	}
	if err := p.Save(10*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("save grid plot: %w", err)
	}
	return nil
}
