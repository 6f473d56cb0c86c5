package render

import (
	"fmt"
	"image/color"
)

// Person is one synthetic detection box.
type Person struct {
	X1, Y1, X2, Y2 int
	Conf           float64
	HasPhone       bool
}

func (p Person) Width() int  { return p.X2 - p.X1 }
func (p Person) Height() int { return p.Y2 - p.Y1 }

// DrawPerson draws the box, a head marker above it and a confidence chip.
// Phone holders also get a phone box at chest height.
func (c *Canvas) DrawPerson(p Person, col color.Color) {
	c.Rect(p.X1, p.Y1, p.X2, p.Y2, col, 2)

	headR := max(8, p.Width()/4)
	cx := (p.X1 + p.X2) / 2
	c.Ellipse(cx-headR, p.Y1-headR*2, cx+headR, p.Y1, col, 2)

	c.Label(p.X1, max(0, p.Y1-headR*2-18), fmt.Sprintf("Person %.2f", p.Conf), col, ColorLabelBG)

	if p.HasPhone {
		c.drawPhone(p)
	}
}

func (c *Canvas) drawPhone(p Person) {
	phW := max(18, p.Width()/3)
	phH := max(30, phW*2)
	cx := (p.X1 + p.X2) / 2

	py1 := max(p.Y1, p.Y1+p.Height()*2/3-phH/2)
	py2 := min(p.Y2, py1+phH)
	px1 := max(p.X1, cx-phW/2)
	px2 := min(p.X2, cx+phW/2)

	c.Rect(px1, py1, px2, py2, ColorPhone, 2)

	const inner = 3
	if px2-px1 > inner*3 && py2-py1 > inner*3 {
		c.Rect(px1+inner, py1+inner, px2-inner, py2-inner, ColorPhoneIn, 1)
	}

	lx := max(p.X1, px1-4)
	ly := max(0, py1-16)
	c.FillRect(lx, ly, lx+68, ly+14, ColorPhoneBG)
	c.Text(lx+3, ly+2, "Phone", ColorPhone)
}

// CountPhones returns how many persons hold a phone.
func CountPhones(persons []Person) int {
	n := 0
	for _, p := range persons {
		if p.HasPhone {
			n++
		}
	}
	return n
}
