package models

// ============================================================
// Style presets
// ============================================================

// StylePreset задает неизменяемый набор стилей, он применяется к объекту при создании.
type StylePreset struct {
	Fill        string
	Stroke      string
	StrokeWidth float64
	Opacity     float64
	Locks       Locks
}

// Apply копирует стиль в объект.
func (s StylePreset) Apply(obj *SceneObject) {
	obj.Fill = s.Fill
	obj.Stroke = s.Stroke
	obj.StrokeWidth = s.StrokeWidth
	obj.Opacity = s.Opacity
	obj.Locks = s.Locks
}

var lockedAll = Locks{
	LockMovementX: true,
	LockMovementY: true,
	LockRotation:  true,
	LockScalingX:  true,
	LockScalingY:  true,
}

// Styles хранит пресеты по тегам объектов.
type Styles struct {
	Grid      StylePreset
	Room      StylePreset
	Wall      StylePreset
	Preview   StylePreset
	Endpoint  StylePreset
	Furniture StylePreset
}

// DefaultStyles возвращает стандартные пресеты.
func DefaultStyles() Styles {
	roomLocks := lockedAll
	roomLocks.Selectable = true
	roomLocks.Evented = true

	return Styles{
		Grid: StylePreset{
			Fill:        "",
			Stroke:      "#DDDDDD",
			StrokeWidth: 1,
			Opacity:     1,
			Locks:       lockedAll,
		},
		Room: StylePreset{
			Fill:    "#F5F5F5",
			Opacity: 1,
			Locks:   roomLocks,
		},
		Wall: StylePreset{
			Fill:        "#3C3C3C",
			Stroke:      "#3C3C3C",
			StrokeWidth: 1,
			Opacity:     1,
			Locks:       lockedAll,
		},
		Preview: StylePreset{
			Fill:        "#3C3C3C",
			Stroke:      "#1F77B4",
			StrokeWidth: 1,
			Opacity:     0.5,
			Locks:       lockedAll,
		},
		Endpoint: StylePreset{
			Fill:        "#D62728",
			Stroke:      "#D62728",
			StrokeWidth: 1,
			Opacity:     0.8,
			Locks:       lockedAll,
		},
		Furniture: StylePreset{
			Opacity: 1,
			Locks: Locks{
				Selectable:  true,
				Evented:     true,
				HasControls: true,
			},
		},
	}
}
