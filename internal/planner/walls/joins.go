package walls

import (
	"math"

	"floorplan/internal/planner/geometry"
	"floorplan/internal/planner/models"
)

// ============================================================
// Extrusion & corner joins
// ============================================================

// JoinKind показывает, чем закончилась попытка построить угол.
type JoinKind int

const (
	JoinNone JoinKind = iota
	JoinStraight
	JoinMiter
	JoinButt
)

func (k JoinKind) String() string {
	switch k {
	case JoinStraight:
		return "straight"
	case JoinMiter:
		return "miter"
	case JoinButt:
		return "butt"
	default:
		return "none"
	}
}

// Extrude строит смещенные точки сегмента на ±thickness/2 по нормали
// (торцы без скоса). Для сегмента нулевой длины возвращает false.
func Extrude(seg *models.WallSegment) bool {
	n, ok := geometry.Normal(seg.Start, seg.End)
	if !ok {
		return false
	}
	h := seg.Thickness / 2
	seg.InnerStart = seg.Start.Add(n.Mul(h))
	seg.InnerEnd = seg.End.Add(n.Mul(h))
	seg.OuterStart = seg.Start.Sub(n.Mul(h))
	seg.OuterEnd = seg.End.Sub(n.Mul(h))
	return true
}

// ButtStart сбрасывает начальный торец сегмента к прямому.
func ButtStart(seg *models.WallSegment) {
	n, ok := geometry.Normal(seg.Start, seg.End)
	if !ok {
		return
	}
	h := seg.Thickness / 2
	if !innerIsLeft(seg) {
		n = n.Mul(-1)
	}
	seg.InnerStart = seg.Start.Add(n.Mul(h))
	seg.OuterStart = seg.Start.Sub(n.Mul(h))
}

// ButtEnd сбрасывает конечный торец сегмента к прямому.
func ButtEnd(seg *models.WallSegment) {
	n, ok := geometry.Normal(seg.Start, seg.End)
	if !ok {
		return
	}
	h := seg.Thickness / 2
	if !innerIsLeft(seg) {
		n = n.Mul(-1)
	}
	seg.InnerEnd = seg.End.Add(n.Mul(h))
	seg.OuterEnd = seg.End.Sub(n.Mul(h))
}

// innerIsLeft проверяет, лежит ли сторона Inner по +нормали.
func innerIsLeft(seg *models.WallSegment) bool {
	n, ok := geometry.Normal(seg.Start, seg.End)
	if !ok {
		return true
	}
	d := seg.InnerStart.Sub(seg.OuterStart)
	return d.X*n.X+d.Y*n.Y >= 0
}

// Join строит угол между a (заканчивается в вершине) и b (начинается в ней).
// Меняет только конец a и начало b. Стороны Inner должны лежать по +нормали.
//
// Вогнутая сторона: смещенные отрезки пересекаются внутри обоих, излишек
// обрезается. Выпуклая сторона: смещенные прямые продлеваются до пересечения.
// Почти параллельные линии и углы, выходящие за miterLimit·h, дают прямой торец.
func Join(a, b *models.WallSegment, miterLimit float64) JoinKind {
	da := a.End.Sub(a.Start)
	db := b.End.Sub(b.Start)
	la := math.Hypot(da.X, da.Y)
	lb := math.Hypot(db.X, db.Y)
	if la < geometry.Epsilon || lb < geometry.Epsilon {
		return JoinNone
	}

	sin := (da.X*db.Y - da.Y*db.X) / (la * lb)
	cos := (da.X*db.X + da.Y*db.Y) / (la * lb)

	if math.Abs(sin) < 1e-6 {
		if cos > 0 {
			// продолжение по прямой: смещения уже совпадают
			return JoinStraight
		}
		return JoinButt
	}

	h := a.Thickness / 2
	limit := miterLimit * h
	leftTurn := sin > 0

	inner := corner(a.InnerStart, a.InnerEnd, b.InnerStart, b.InnerEnd, a.End, leftTurn, limit)
	outer := corner(a.OuterStart, a.OuterEnd, b.OuterStart, b.OuterEnd, a.End, !leftTurn, limit)

	kind := JoinMiter
	if inner != nil {
		a.InnerEnd, b.InnerStart = *inner, *inner
	} else {
		kind = JoinButt
	}
	if outer != nil {
		a.OuterEnd, b.OuterStart = *outer, *outer
	} else {
		kind = JoinButt
	}
	return kind
}

// corner считает точку угла на одной стороне стены.
func corner(aS, aE, bS, bE, vertex models.Point, concave bool, limit float64) *models.Point {
	var p *models.Point
	if concave {
		p = geometry.LineIntersection(aS, aE, bS, bE)
	} else {
		p = geometry.IntersectLines(aS, aE, bS, bE)
	}
	if p == nil {
		return nil
	}
	if geometry.Distance(*p, vertex) > limit {
		return nil
	}
	return p
}

// Reverse разворачивает сегмент, сохраняя геометрию углов.
func Reverse(seg *models.WallSegment) {
	seg.Start, seg.End = seg.End, seg.Start
	seg.InnerStart, seg.InnerEnd, seg.OuterStart, seg.OuterEnd =
		seg.OuterEnd, seg.OuterStart, seg.InnerEnd, seg.InnerStart
}

// SwapSides меняет местами Inner и Outer без смены направления.
func SwapSides(seg *models.WallSegment) {
	seg.InnerStart, seg.OuterStart = seg.OuterStart, seg.InnerStart
	seg.InnerEnd, seg.OuterEnd = seg.OuterEnd, seg.InnerEnd
}
