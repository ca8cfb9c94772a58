package scan

// Viewport exposes the geometry of a scrolling item list in content units.
type Viewport interface {
	ItemTop(i int) int
	ItemHeight(i int) int
	Height() int
	ContentHeight() int
	Offset() int
	SetOffset(offset int)
}

// Anchor pins the focused item to a viewport line. It stays inactive until
// the focused item's top reaches the line from the side scanning began on,
// then holds every later focus on that line.
type Anchor struct {
	ratio  float64
	active bool
	side   int
}

// NewAnchor builds an anchor at ratio of the viewport height. Ratios outside
// [0, 1] are clamped.
func NewAnchor(ratio float64) *Anchor {
	switch {
	case ratio < 0:
		ratio = 0
	case ratio > 1:
		ratio = 1
	}
	return &Anchor{ratio: ratio}
}

// Rearm deactivates the anchor so the next focus starts a new approach.
func (a *Anchor) Rearm() {
	a.active = false
	a.side = 0
}

func (a *Anchor) Active() bool { return a.active }

// Focus repositions vp for item i.
func (a *Anchor) Focus(vp Viewport, i int) {
	if vp == nil {
		return
	}
	line := int(a.ratio * float64(vp.Height()))
	if !a.active {
		if a.side == 0 {
			ensureVisible(vp, i)
		}
		pos := vp.ItemTop(i) - vp.Offset()
		switch {
		case a.side == 0 && pos == line:
			a.active = true
		case a.side == 0 && pos > line:
			a.side = 1
		case a.side == 0:
			a.side = -1
		case a.side > 0 && pos <= line, a.side < 0 && pos >= line:
			a.active = true
		}
	}
	if a.active {
		setOffset(vp, vp.ItemTop(i)-line)
		return
	}
	ensureVisible(vp, i)
}

func ensureVisible(vp Viewport, i int) {
	top := vp.ItemTop(i)
	bottom := top + vp.ItemHeight(i)
	offset := vp.Offset()
	switch {
	case top < offset:
		setOffset(vp, top)
	case bottom > offset+vp.Height():
		setOffset(vp, bottom-vp.Height())
	}
}

func setOffset(vp Viewport, offset int) {
	maxOffset := vp.ContentHeight() - vp.Height()
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	if offset < 0 {
		offset = 0
	}
	vp.SetOffset(offset)
}

// LineViewport is a virtual viewport over items measured in text rows.
type LineViewport struct {
	heights  []int
	tops     []int
	total    int
	height   int
	offset   int
	reversed bool
}

// NewLineViewport lays out items with the given row heights. When reversed
// is set, item 0 is drawn at the bottom, as in a chat log scanned from the
// newest message.
func NewLineViewport(heights []int, height int, reversed bool) *LineViewport {
	vp := &LineViewport{height: height, reversed: reversed}
	vp.SetHeights(heights)
	return vp
}

// SetHeights replaces the layout and keeps the offset in range.
func (v *LineViewport) SetHeights(heights []int) {
	v.heights = append(v.heights[:0], heights...)
	v.tops = make([]int, len(heights))
	v.total = 0
	for pos := range heights {
		i := v.index(pos)
		h := heights[i]
		if h < 1 {
			h = 1
			v.heights[i] = 1
		}
		v.tops[i] = v.total
		v.total += h
	}
	setOffset(v, v.offset)
}

// index maps a display position to an item index.
func (v *LineViewport) index(pos int) int {
	if v.reversed {
		return len(v.heights) - 1 - pos
	}
	return pos
}

func (v *LineViewport) ItemTop(i int) int {
	if i < 0 || i >= len(v.tops) {
		return 0
	}
	return v.tops[i]
}

func (v *LineViewport) ItemHeight(i int) int {
	if i < 0 || i >= len(v.heights) {
		return 0
	}
	return v.heights[i]
}

func (v *LineViewport) Height() int        { return v.height }
func (v *LineViewport) ContentHeight() int { return v.total }
func (v *LineViewport) Offset() int        { return v.offset }
func (v *LineViewport) SetOffset(o int)    { v.offset = o }

// ScrollToEnd shows the bottom of the content.
func (v *LineViewport) ScrollToEnd() {
	setOffset(v, v.total)
}
