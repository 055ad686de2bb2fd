package fleetconfig

import (
	"fmt"
	"sort"
)

// Waypoint is a named vertex of a building level.
type Waypoint struct {
	Name      string  `json:"name"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	IsCharger bool    `json:"is_charger"`
}

// Waypoints lists the named vertices of a level in the traffic-editor
// building document. Vertices are encoded as [x, y, z, name, params].
func Waypoints(building Document, level string) ([]Waypoint, error) {
	levels, ok := building["levels"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("building has no levels")
	}
	lvl, ok := levels[level].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("level %q not found", level)
	}
	vertices, _ := lvl["vertices"].([]any)

	var out []Waypoint
	for _, v := range vertices {
		fields, ok := v.([]any)
		if !ok || len(fields) < 4 {
			continue
		}
		name, _ := fields[3].(string)
		if name == "" {
			continue
		}
		wp := Waypoint{Name: name, X: toFloat(fields[0]), Y: toFloat(fields[1])}
		if len(fields) > 4 {
			if params, ok := fields[4].(map[string]any); ok {
				wp.IsCharger = paramBool(params["is_charger"])
			}
		}
		out = append(out, wp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

// paramBool reads a traffic-editor param, stored either as a plain value or
// as a [type, value] pair.
func paramBool(v any) bool {
	switch p := v.(type) {
	case bool:
		return p
	case []any:
		if len(p) == 2 {
			if b, ok := p[1].(bool); ok {
				return b
			}
		}
	}
	return false
}
