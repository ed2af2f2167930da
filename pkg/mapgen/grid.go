package mapgen

// TileSize is the side length of one overmap-terrain cell in local
// tiles: a mapgen whose om_terrain is a 2D grid is split into
// non-overlapping TileSize x TileSize cells, one per grid position.
const TileSize = 24

// slicedPlaceFields are the place-list fields whose entries carry x/y
// coordinates and therefore need filtering and offsetting when a grid
// mapgen is split into cells.
var slicedPlaceFields = []string{
	"place_item", "place_items", "place_loot", "place_nested",
	"place_furniture", "place_terrain", "add", "set",
}

// gridCells returns one derived mapgen object per grid position where
// key appears in the record's 2D om_terrain, with rows sliced to the
// cell and place-entries filtered by their minimum x/y coordinates.
// Returns nil when om_terrain is not a 2D grid.
func gridCells(fields, obj map[string]any, key string) []map[string]any {
	grid := omTerrainGrid(fields["om_terrain"])
	if grid == nil {
		return nil
	}

	var cells []map[string]any
	for y, row := range grid {
		for x, id := range row {
			if id == key {
				cells = append(cells, sliceObject(obj, x, y))
			}
		}
	}
	return cells
}

// omTerrainGrid interprets an om_terrain value as a 2D grid of ids, or
// nil if it is a bare string or a flat list.
func omTerrainGrid(v any) [][]string {
	outer, ok := v.([]any)
	if !ok {
		return nil
	}

	grid := make([][]string, 0, len(outer))
	for _, rawRow := range outer {
		inner, ok := rawRow.([]any)
		if !ok {
			return nil
		}
		row := make([]string, 0, len(inner))
		for _, e := range inner {
			s, ok := e.(string)
			if !ok {
				return nil
			}
			row = append(row, s)
		}
		grid = append(grid, row)
	}
	return grid
}

// sliceObject derives the mapgen object for grid cell (cx, cy): rows
// sliced to [cy*24:(cy+1)*24][cx*24:(cx+1)*24], coordinate-bearing
// place-entries kept only when their minimum x/y fall inside the cell,
// with coordinates shifted into cell-local space.
func sliceObject(obj map[string]any, cx, cy int) map[string]any {
	out := make(map[string]any, len(obj))
	for k, v := range obj {
		out[k] = v
	}

	out["rows"] = sliceRows(stringRows(obj["rows"]), cx, cy)

	x0, y0 := cx*TileSize, cy*TileSize
	for _, field := range slicedPlaceFields {
		entries := entryObjects(obj[field])
		if len(entries) == 0 {
			delete(out, field)
			continue
		}
		var kept []any
		for _, e := range entries {
			ex := coordMin(e["x"])
			ey := coordMin(e["y"])
			if ex < x0 || ex >= x0+TileSize || ey < y0 || ey >= y0+TileSize {
				continue
			}
			kept = append(kept, shiftEntry(e, x0, y0))
		}
		if kept == nil {
			delete(out, field)
		} else {
			out[field] = kept
		}
	}

	return out
}

func sliceRows(rows []string, cx, cy int) []any {
	out := make([]any, 0, TileSize)
	for y := cy * TileSize; y < (cy+1)*TileSize && y < len(rows); y++ {
		row := []rune(rows[y])
		x0 := cx * TileSize
		if x0 >= len(row) {
			out = append(out, "")
			continue
		}
		x1 := x0 + TileSize
		if x1 > len(row) {
			x1 = len(row)
		}
		out = append(out, string(row[x0:x1]))
	}
	return out
}

// shiftEntry rewrites an entry's x/y (and x2/y2) coordinates into
// cell-local space.
func shiftEntry(e map[string]any, x0, y0 int) map[string]any {
	out := make(map[string]any, len(e))
	for k, v := range e {
		out[k] = v
	}
	for field, off := range map[string]int{"x": x0, "y": y0, "x2": x0, "y2": y0} {
		if v, ok := e[field]; ok {
			out[field] = shiftCoord(v, off)
		}
	}
	return out
}

func shiftCoord(v any, off int) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			if f, ok := toFloat(e); ok {
				out[i] = f - float64(off)
			} else {
				out[i] = e
			}
		}
		return out
	default:
		if f, ok := toFloat(v); ok {
			return f - float64(off)
		}
		return v
	}
}
