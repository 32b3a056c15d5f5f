package searchtree

// Vec2 is a point in the plane.
type Vec2 struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle anchored at its top-left corner.
type Rect struct {
	X, Y          float64
	Width, Height float64
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.X && p.X <= r.X+r.Width &&
		p.Y >= r.Y && p.Y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap. Touching edges do not
// count.
func (r Rect) Intersects(other Rect) bool {
	return r.X < other.X+other.Width && r.X+r.Width > other.X &&
		r.Y < other.Y+other.Height && r.Y+r.Height > other.Y
}

// Union returns the smallest Rect covering both r and other.
func (r Rect) Union(other Rect) Rect {
	right := r.X + r.Width
	bottom := r.Y + r.Height
	out := r

	if other.X < out.X {
		out.X = other.X
	}
	if other.Y < out.Y {
		out.Y = other.Y
	}
	if or := other.X + other.Width; or > right {
		right = or
	}
	if ob := other.Y + other.Height; ob > bottom {
		bottom = ob
	}

	out.Width = right - out.X
	out.Height = bottom - out.Y
	return out
}

// Entity constrains the values a RectPredicate indexes: comparable, with
// a rectangular extent.
type Entity interface {
	comparable
	Bounds() Rect
}

// RectPredicate is the axis-aligned rectangle backend for Tree. The root
// region is the union of every value's bounds, quadrants are an even
// four-way split of the parent, and both membership and overlap are
// rectangle intersection.
type RectPredicate[V Entity] struct{}

func (RectPredicate[V]) NilRegion() Rect {
	return Rect{}
}

func (RectPredicate[V]) RegionFromData(values []V) Rect {
	if len(values) == 0 {
		return Rect{}
	}

	bounds := values[0].Bounds()
	for _, v := range values[1:] {
		bounds = bounds.Union(v.Bounds())
	}
	return bounds
}

func (RectPredicate[V]) QuadrantsFromData(parent Rect, _ []V) Quadrants[Rect] {
	hw := parent.Width / 2
	hh := parent.Height / 2
	return Quadrants[Rect]{
		UpperLeft:  Rect{X: parent.X, Y: parent.Y, Width: hw, Height: hh},
		UpperRight: Rect{X: parent.X + hw, Y: parent.Y, Width: hw, Height: hh},
		LowerLeft:  Rect{X: parent.X, Y: parent.Y + hh, Width: hw, Height: hh},
		LowerRight: Rect{X: parent.X + hw, Y: parent.Y + hh, Width: hw, Height: hh},
	}
}

func (RectPredicate[V]) Satisfies(region Rect, v V) bool {
	return region.Intersects(v.Bounds())
}

func (RectPredicate[V]) Overlaps(a, b Rect) bool {
	return a.Intersects(b)
}
