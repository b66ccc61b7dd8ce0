// Package geometry содержит чистые функции планиметрии для редактора стен.
package geometry

import (
	"math"

	"floorplan/internal/planner/models"
)

// ============================================================
// Tolerances
// ============================================================

// Epsilon задает порог, ниже которого векторное произведение считается нулем.
const Epsilon = 1e-9

// ============================================================
// Basic metrics
// ============================================================

// Distance возвращает евклидово расстояние между точками.
func Distance(p1, p2 models.Point) float64 {
	dx := p1.X - p2.X
	dy := p1.Y - p2.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// AngleOf возвращает угол направления p1 -> p2 в радианах.
func AngleOf(p1, p2 models.Point) float64 {
	return math.Atan2(p2.Y-p1.Y, p2.X-p1.X)
}

// OffsetPoint сдвигает точку на distance в направлении angle.
func OffsetPoint(p models.Point, angle, distance float64) models.Point {
	return models.Point{
		X: p.X + math.Cos(angle)*distance,
		Y: p.Y + math.Sin(angle)*distance,
	}
}

// Normal возвращает единичную левую нормаль к направлению p1 -> p2.
// Для отрезка нулевой длины ok == false.
func Normal(p1, p2 models.Point) (models.Point, bool) {
	dx := p2.X - p1.X
	dy := p2.Y - p1.Y
	length := math.Sqrt(dx*dx + dy*dy)
	if length < Epsilon {
		return models.Point{}, false
	}
	return models.Point{X: -dy / length, Y: dx / length}, true
}

func cross(a, b models.Point) float64 {
	return a.X*b.Y - a.Y*b.X
}

// AlmostEqual сравнивает точки с допуском Epsilon.
func AlmostEqual(a, b models.Point) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6
}

// ============================================================
// Intersections
// ============================================================

// LineIntersection пересекает отрезки aStart-aEnd и bStart-bEnd.
// Возвращает nil для параллельных отрезков и когда параметр
// пересечения выходит за [0,1] хотя бы на одном из них.
func LineIntersection(aStart, aEnd, bStart, bEnd models.Point) *models.Point {
	r := aEnd.Sub(aStart)
	s := bEnd.Sub(bStart)
	denom := cross(r, s)
	if math.Abs(denom) < Epsilon {
		return nil
	}

	qp := bStart.Sub(aStart)
	t := cross(qp, s) / denom
	u := cross(qp, r) / denom
	if t < -Epsilon || t > 1+Epsilon || u < -Epsilon || u > 1+Epsilon {
		return nil
	}

	p := aStart.Add(r.Mul(t))
	return &p
}

// IntersectLines пересекает бесконечные прямые через заданные точки.
// nil, если прямые параллельны.
func IntersectLines(aStart, aEnd, bStart, bEnd models.Point) *models.Point {
	r := aEnd.Sub(aStart)
	s := bEnd.Sub(bStart)
	rl := math.Hypot(r.X, r.Y)
	sl := math.Hypot(s.X, s.Y)
	if rl < Epsilon || sl < Epsilon {
		return nil
	}
	denom := cross(r, s)
	// синус угла между прямыми
	if math.Abs(denom)/(rl*sl) < 1e-6 {
		return nil
	}

	t := cross(bStart.Sub(aStart), s) / denom
	p := aStart.Add(r.Mul(t))
	return &p
}

// ============================================================
// Polygons
// ============================================================

// SignedArea считает ориентированную площадь многоугольника (формула шнурков).
// Положительна при обходе против часовой стрелки в осях с Y вверх.
func SignedArea(points []models.Point) float64 {
	n := len(points)
	if n < 3 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += points[i].X*points[j].Y - points[j].X*points[i].Y
	}
	return sum / 2
}

// Dedupe убирает подряд идущие совпадающие точки и дубль замыкания.
func Dedupe(points []models.Point, tolerance float64) []models.Point {
	out := make([]models.Point, 0, len(points))
	for _, p := range points {
		if len(out) > 0 && Distance(out[len(out)-1], p) < tolerance {
			continue
		}
		out = append(out, p)
	}
	for len(out) > 1 && Distance(out[0], out[len(out)-1]) < tolerance {
		out = out[:len(out)-1]
	}
	return out
}

// Bounds возвращает ограничивающий прямоугольник набора точек.
func Bounds(points []models.Point) (minX, minY, maxX, maxY float64) {
	if len(points) == 0 {
		return 0, 0, 0, 0
	}
	minX, maxX = points[0].X, points[0].X
	minY, maxY = points[0].Y, points[0].Y
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

// Reverse возвращает точки в обратном порядке.
func Reverse(points []models.Point) []models.Point {
	out := make([]models.Point, len(points))
	for i, p := range points {
		out[len(points)-1-i] = p
	}
	return out
}
