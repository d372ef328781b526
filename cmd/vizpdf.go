package cmd

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgpdf"

	"github.com/zalepa/escolas/school"
)

const (
	pageWidth  = 8.5 * vg.Inch
	pageHeight = 11 * vg.Inch
	pdfMargin  = 0.75 * vg.Inch
)

var chartBlue = color.RGBA{R: 59, G: 130, B: 246, A: 255}

// slicePalette colors pie slices in order, cycling when there are more
// categories than colors.
var slicePalette = []color.Color{
	color.RGBA{R: 84, G: 112, B: 198, A: 255},
	color.RGBA{R: 145, G: 204, B: 117, A: 255},
	color.RGBA{R: 250, G: 200, B: 88, A: 255},
	color.RGBA{R: 238, G: 102, B: 102, A: 255},
	color.RGBA{R: 115, G: 192, B: 222, A: 255},
	color.RGBA{R: 59, G: 162, B: 114, A: 255},
	color.RGBA{R: 252, G: 132, B: 82, A: 255},
	color.RGBA{R: 154, G: 96, B: 180, A: 255},
	color.RGBA{R: 234, G: 124, B: 204, A: 255},
}

const (
	tableRowHeight = 0.28 * vg.Inch
	tableHeader    = 1.0 * vg.Inch
	idColWidth     = 0.7 * vg.Inch
	nameColWidth   = 3.3 * vg.Inch
	muniColWidth   = 1.6 * vg.Inch
	maxPDFName     = 45
)

// renderPDF writes the report: the dependency donut, the municipality bar
// chart, then the school table over as many pages as it needs. Charts are
// left out when there are no schools. It returns the number of pages written.
func renderPDF(path string, schools []school.School, byDep, byMuni school.Distribution) (int, error) {
	c := vgpdf.New(pageWidth, pageHeight)
	pages := 1

	if len(schools) == 0 {
		area := pageArea(c)
		fillText(area, "Schools", vg.Points(16), area.Min.X, area.Max.Y-vg.Points(16), color.Black)
		fillText(area, "No schools loaded.", vg.Points(11), area.Min.X, area.Max.Y-0.5*vg.Inch, color.Gray{Y: 100})
	} else {
		drawDonutPage(c, dependencyTitle, byDep)
		c.NextPage()
		pages++
		if err := drawBarPage(c, municipalityTitle, byMuni); err != nil {
			return 0, err
		}
		for start := 0; start < len(schools); start += tableRowsPerPage() {
			c.NextPage()
			pages++
			end := min(start+tableRowsPerPage(), len(schools))
			drawTablePage(c, schools[start:end], start, len(schools))
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	if _, err := c.WriteTo(f); err != nil {
		f.Close()
		return 0, err
	}
	return pages, f.Close()
}

func pageArea(c *vgpdf.Canvas) draw.Canvas {
	dc := draw.New(c)
	return draw.Crop(dc, pdfMargin, -pdfMargin, pdfMargin, -pdfMargin)
}

func drawDonutPage(c *vgpdf.Canvas, title string, d school.Distribution) {
	area := pageArea(c)
	total := d.Total()

	top := area.Max.Y
	fillTextCentered(area, title, vg.Points(16), top-vg.Points(16), color.Black)
	fillTextCentered(area, formatInt(int64(total))+" schools", vg.Points(10), top-0.45*vg.Inch, color.Gray{Y: 100})

	usableW := area.Max.X - area.Min.X
	outer := usableW * 0.35
	center := vg.Point{X: area.Min.X + usableW/2, Y: top - 0.8*vg.Inch - outer}
	drawDonut(area, center, outer*40/70, outer, d)

	// Legend, one row per category, in distribution order.
	y := center.Y - outer - 0.5*vg.Inch
	for i, e := range d {
		if y < area.Min.Y {
			break
		}
		sw := vg.Points(9)
		x := area.Min.X + usableW*0.2
		area.FillPolygon(sliceColor(i), []vg.Point{
			{X: x, Y: y}, {X: x + sw, Y: y}, {X: x + sw, Y: y + sw}, {X: x, Y: y + sw},
		})
		label := fmt.Sprintf("%s  %s (%s)", displayText(e.Category), formatInt(int64(e.Count)), formatPct(e.Count, total))
		fillText(area, label, vg.Points(10), x+sw+vg.Points(6), y, color.Black)
		y -= vg.Points(16)
	}
}

func sliceColor(i int) color.Color {
	return slicePalette[i%len(slicePalette)]
}

// drawDonut fills one ring segment per entry, clockwise from twelve o'clock,
// each spanning an angle proportional to its count.
func drawDonut(c draw.Canvas, center vg.Point, inner, outer vg.Length, d school.Distribution) {
	total := d.Total()
	if total == 0 {
		return
	}
	angle := math.Pi / 2
	for i, e := range d {
		sweep := 2 * math.Pi * float64(e.Count) / float64(total)
		c.FillPolygon(sliceColor(i), ringSegment(center, inner, outer, angle, angle-sweep))
		angle -= sweep
	}
}

// ringSegment approximates the region between two concentric arcs from
// angle a0 to a1 (radians) as a polygon, one vertex every two degrees.
func ringSegment(center vg.Point, inner, outer vg.Length, a0, a1 float64) []vg.Point {
	steps := int(math.Ceil(math.Abs(a1-a0) / (math.Pi / 90)))
	if steps < 1 {
		steps = 1
	}
	pts := make([]vg.Point, 0, 2*(steps+1))
	at := func(r vg.Length, a float64) vg.Point {
		return vg.Point{X: center.X + r*vg.Length(math.Cos(a)), Y: center.Y + r*vg.Length(math.Sin(a))}
	}
	for i := 0; i <= steps; i++ {
		pts = append(pts, at(outer, a0+(a1-a0)*float64(i)/float64(steps)))
	}
	for i := steps; i >= 0; i-- {
		pts = append(pts, at(inner, a0+(a1-a0)*float64(i)/float64(steps)))
	}
	return pts
}

func drawBarPage(c *vgpdf.Canvas, title string, d school.Distribution) error {
	categories, counts := d.BarSeries()
	vals := make(plotter.Values, len(counts))
	for i, n := range counts {
		vals[i] = float64(n)
	}
	labels := make([]string, len(categories))
	for i, cat := range categories {
		labels[i] = displayText(cat)
	}

	p := plot.New()
	p.Title.Text = title
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.BackgroundColor = color.White

	usableW := pageWidth - 2*pdfMargin
	width := usableW / vg.Length(max(len(vals), 1)) * 0.6
	if width > 0.6*vg.Inch {
		width = 0.6 * vg.Inch
	}
	bars, err := plotter.NewBarChart(vals, width)
	if err != nil {
		return err
	}
	bars.Color = chartBlue
	bars.LineStyle.Width = 0

	grid := plotter.NewGrid()
	grid.Vertical.Color = nil
	p.Add(grid, bars)

	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
	if len(labels) > 30 {
		p.X.Tick.Label.Font.Size = vg.Points(6)
	}
	p.Y.Min = 0
	p.Y.Label.Text = "Schools"
	p.Y.Tick.Marker = countTicks{}

	area := pageArea(c)
	// Leave the lower part of the page for rotated labels.
	area.Min.Y += 1.5 * vg.Inch
	p.Draw(area)
	return nil
}

// countTicks keeps only whole-number ticks, since counts are integers.
type countTicks struct{}

func (countTicks) Ticks(min, max float64) []plot.Tick {
	var ticks []plot.Tick
	for _, t := range (plot.DefaultTicks{}).Ticks(min, max) {
		if t.Value != math.Trunc(t.Value) {
			continue
		}
		if t.Label != "" {
			t.Label = formatCompact(t.Value)
		}
		ticks = append(ticks, t)
	}
	return ticks
}

func tableRowsPerPage() int {
	usable := pageHeight - 2*pdfMargin - tableHeader
	return int(usable / tableRowHeight)
}

func drawTablePage(c *vgpdf.Canvas, rows []school.School, offset, total int) {
	area := pageArea(c)
	top := area.Max.Y

	caption := fmt.Sprintf("Schools %d-%d of %d", offset+1, offset+len(rows), total)
	fillText(area, "Detailed list", vg.Points(14), area.Min.X, top-vg.Points(14), color.Black)
	fillText(area, caption, vg.Points(10), area.Min.X, top-0.35*vg.Inch, color.Gray{Y: 100})

	headerY := top - 0.7*vg.Inch
	cols := []vg.Length{
		area.Min.X,
		area.Min.X + idColWidth,
		area.Min.X + idColWidth + nameColWidth,
		area.Min.X + idColWidth + nameColWidth + muniColWidth,
	}
	for i, h := range []string{"ID", "Name", "Municipality", "Dependency"} {
		fillText(area, h, vg.Points(9), cols[i], headerY, color.Gray{Y: 80})
	}
	sepY := headerY - vg.Points(6)
	strokeHLine(area, area.Min.X, area.Max.X, sepY, color.Gray{Y: 180})

	for i, s := range rows {
		y := sepY - vg.Length(i+1)*tableRowHeight + vg.Points(6)
		cells := []string{
			"#" + strconv.Itoa(s.ID),
			truncate(displayText(s.Name), maxPDFName),
			truncate(displayText(s.Municipality), 24),
			truncate(displayText(s.Dependency), 20),
		}
		for j, cell := range cells {
			fillText(area, cell, vg.Points(8), cols[j], y, color.Black)
		}
	}
}

func fillText(c draw.Canvas, txt string, size vg.Length, x, y vg.Length, clr color.Color) {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
	}
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: x, Y: y}, txt)
}

func fillTextCentered(c draw.Canvas, txt string, size vg.Length, y vg.Length, clr color.Color) {
	sty := draw.TextStyle{
		Color:   clr,
		Font:    plot.DefaultFont,
		Handler: plot.DefaultTextHandler,
		XAlign:  draw.XCenter,
	}
	sty.Font.Size = size
	c.FillText(sty, vg.Point{X: (c.Min.X + c.Max.X) / 2, Y: y}, txt)
}

func strokeHLine(c draw.Canvas, x0, x1, y vg.Length, clr color.Color) {
	c.StrokeLine2(draw.LineStyle{
		Color: clr,
		Width: vg.Points(0.5),
	}, x0, y, x1, y)
}
