// Package overlay draws the gesture dialog box and hand skeletons onto frames.
package overlay

import (
	"image"
	"image/color"
	"strings"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/dialog"
)

// Dialog box geometry in pixels.
const (
	MaxBoxWidth  = 600
	BoxHeight    = 130
	BoxMargin    = 20
	BottomOffset = 330
	BorderWidth  = 2
	BoxAlpha     = 0.8
)

var (
	boxFill   = color.RGBA{R: 35, G: 25, B: 20, A: 255}
	titleInk  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	textInk   = color.RGBA{R: 255, G: 220, B: 220, A: 255}
	jointInk  = color.RGBA{R: 255, A: 255}
	boneInk   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	titleFont = gocv.FontHersheyDuplex
	textFont  = gocv.FontHersheySimplex
)

// Box is the dialog placement for one frame size.
type Box struct {
	Rect  image.Rectangle
	Title image.Point
	Text  image.Point
}

// Layout places the dialog box for a width x height frame: at most
// MaxBoxWidth wide with BoxMargin on each side, horizontally centred, its
// bottom edge BottomOffset pixels above the frame bottom. The box is clamped
// to the frame; an empty Rect means there is no room to draw.
func Layout(width, height int) Box {
	w := min(MaxBoxWidth, width-2*BoxMargin)
	if w <= 0 || height <= 0 {
		return Box{}
	}
	x := (width - w) / 2
	y := max(height-BoxHeight-BottomOffset, 0)
	h := min(BoxHeight, height-y)

	r := image.Rect(x, y, x+w, y+h)
	return Box{
		Rect:  r,
		Title: image.Pt(x+20, y+30),
		Text:  image.Pt(x+20, y+70),
	}
}

// Title decorates a gesture name for the dialog header.
func Title(name string) string {
	return "◊ " + name + " ◊"
}

// Draw renders v onto img. Nothing is drawn for a zero View.
func Draw(img *gocv.Mat, v dialog.View) {
	if img == nil || img.Empty() || (v.Title == "" && v.Message == "") {
		return
	}
	box := Layout(img.Cols(), img.Rows())
	if box.Rect.Empty() {
		return
	}

	shade(img, box.Rect)
	gocv.Rectangle(img, box.Rect, v.Color.RGBA(), BorderWidth)
	gocv.PutText(img, Printable(Title(v.Title)), box.Title, titleFont, 0.7, titleInk, 2)
	gocv.PutText(img, Printable(v.Text), box.Text, textFont, 0.7, textInk, 2)
}

// shade blends the box fill over r at BoxAlpha.
func shade(img *gocv.Mat, r image.Rectangle) {
	roi := img.Region(r)
	defer roi.Close()

	fill := gocv.NewMatWithSizeFromScalar(
		gocv.NewScalar(float64(boxFill.B), float64(boxFill.G), float64(boxFill.R), 0),
		roi.Rows(), roi.Cols(), roi.Type(),
	)
	defer fill.Close()

	gocv.AddWeighted(fill, BoxAlpha, roi, 1-BoxAlpha, 0, &roi)
}

// Connections are the landmark pairs joined when drawing a hand.
var Connections = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.Wrist, detector.PinkyMCP},
	{detector.PinkyMCP, detector.PinkyPIP}, {detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

// DrawHands draws the skeleton of every complete hand. Malformed hands are
// skipped.
func DrawHands(img *gocv.Mat, hands []detector.HandLandmarks) {
	if img == nil || img.Empty() {
		return
	}
	w, h := img.Cols(), img.Rows()
	for i := range hands {
		hand := &hands[i]
		if !hand.Valid() {
			continue
		}
		for _, c := range Connections {
			gocv.Line(img, Pixel(hand.Points[c[0]], w, h), Pixel(hand.Points[c[1]], w, h), boneInk, 2)
		}
		for _, p := range hand.Points {
			gocv.Circle(img, Pixel(p, w, h), 2, jointInk, 3)
		}
	}
}

// Pixel maps a normalized landmark to image coordinates.
func Pixel(p detector.Point3D, width, height int) image.Point {
	return image.Pt(int(p.X*float64(width)), int(p.Y*float64(height)))
}

var glyphs = map[rune]string{
	'◊': "<>",
	'❤': "<3",
	'…': "...",
	'’': "'",
	'“': `"`,
	'”': `"`,
}

// Printable reduces s to the ASCII subset the Hershey fonts can draw. Known
// symbols get an ASCII stand-in; other non-ASCII runes are dropped.
func Printable(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r < 0x80:
			b.WriteRune(r)
		default:
			if alt, ok := glyphs[r]; ok {
				b.WriteString(alt)
			}
		}
	}
	return strings.TrimRight(b.String(), " ")
}
