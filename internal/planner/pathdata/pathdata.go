package pathdata

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"floorplan/internal/planner/models"
)

// ============================================================
// Path data (контуры стен хранятся как SVG "d")
// ============================================================

var commandRe = regexp.MustCompile(`([MmLlHhVvZz])([^MmLlHhVvZz]*)`)

// Parse разбирает команды M, m, L, l, H, h, V, v, Z в список точек.
// Замыкание Z не дублирует первую точку: closed сообщает о его наличии.
func Parse(d string) (points []models.Point, closed bool, err error) {
	d = strings.TrimSpace(d)
	if d == "" {
		return nil, false, fmt.Errorf("empty path")
	}

	var currentX, currentY float64
	matches := commandRe.FindAllStringSubmatch(d, -1)
	if len(matches) == 0 {
		return nil, false, fmt.Errorf("no path commands in %q", d)
	}

	for _, match := range matches {
		cmd := match[1]
		coords := parseCoords(match[2])

		switch cmd {
		case "M", "L":
			// после команды могут идти несколько пар координат
			for i := 0; i+1 < len(coords); i += 2 {
				currentX, currentY = coords[i], coords[i+1]
				points = append(points, models.Point{X: currentX, Y: currentY})
			}
		case "m", "l":
			for i := 0; i+1 < len(coords); i += 2 {
				currentX += coords[i]
				currentY += coords[i+1]
				points = append(points, models.Point{X: currentX, Y: currentY})
			}
		case "H":
			for _, x := range coords {
				currentX = x
				points = append(points, models.Point{X: currentX, Y: currentY})
			}
		case "h":
			for _, dx := range coords {
				currentX += dx
				points = append(points, models.Point{X: currentX, Y: currentY})
			}
		case "V":
			for _, y := range coords {
				currentY = y
				points = append(points, models.Point{X: currentX, Y: currentY})
			}
		case "v":
			for _, dy := range coords {
				currentY += dy
				points = append(points, models.Point{X: currentX, Y: currentY})
			}
		case "Z", "z":
			closed = true
			if len(points) > 0 {
				currentX, currentY = points[0].X, points[0].Y
			}
		}
	}

	return points, closed, nil
}

// Format собирает абсолютный path "M x y L x y ... Z".
func Format(points []models.Point, closed bool) string {
	if len(points) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("M ")
	b.WriteString(formatPoint(points[0]))
	for _, p := range points[1:] {
		b.WriteString(" L ")
		b.WriteString(formatPoint(p))
	}
	if closed {
		b.WriteString(" Z")
	}
	return b.String()
}

func parseCoords(s string) []float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	// Разделитель: запятая или пробел
	s = strings.ReplaceAll(s, ",", " ")
	parts := strings.Fields(s)

	var coords []float64
	for _, part := range parts {
		val, err := strconv.ParseFloat(part, 64)
		if err == nil {
			coords = append(coords, val)
		}
	}

	return coords
}

func formatFloat(val float64) string {
	return strconv.FormatFloat(val, 'f', -1, 64)
}

func formatPoint(p models.Point) string {
	return formatFloat(p.X) + " " + formatFloat(p.Y)
}
