package aggregate

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/dshills/contentguide/pkg/inherit"
	"github.com/dshills/contentguide/pkg/itemgroup"
	"github.com/dshills/contentguide/pkg/mapgen"
	"github.com/dshills/contentguide/pkg/schedule"
	"github.com/dshills/contentguide/pkg/store"
)

const epsilon = 1e-9

func newAggregator(t *testing.T, records ...map[string]any) *Aggregator {
	t.Helper()
	s := store.New()
	for _, r := range records {
		rawType, _ := r["type"].(string)
		fields := make(map[string]any, len(r))
		for k, v := range r {
			if k == "type" {
				continue
			}
			fields[k] = v
		}
		s.Register(rawType, fields)
	}
	fl := inherit.New(s)
	ev := mapgen.New(s, fl, itemgroup.New(s, fl))
	return New(s, fl, ev)
}

func cabinRecords() []map[string]any {
	return []map[string]any{
		{
			"type":       "mapgen",
			"om_terrain": "cabin",
			"object": map[string]any{
				"rows":       []any{},
				"place_item": []any{map[string]any{"item": "lantern", "chance": float64(50)}},
			},
		},
		{
			"type": "overmap_terrain",
			"id":   "cabin",
			"sym":  "C", "color": "brown", "name": "cabin",
		},
		{
			"type": "overmap_special",
			"id":   "twin_cabins",
			"overmaps": []any{
				map[string]any{"point": []any{float64(0), float64(0), float64(0)}, "overmap": "cabin_north"},
				map[string]any{"point": []any{float64(1), float64(0), float64(0)}, "overmap": "cabin_south"},
				map[string]any{"point": []any{float64(0), float64(0), float64(-1)}, "overmap": "cabin_basement"},
			},
		},
	}
}

// Two ground tiles of the same terrain combine independently; the
// below-ground tile is ignored.
func TestForSpecial(t *testing.T) {
	a := newAggregator(t, cabinRecords()...)

	table, err := a.ForSpecial(context.Background(), nil, nil, "twin_cabins", mapgen.KindItem)
	if err != nil {
		t.Fatalf("ForSpecial failed: %v", err)
	}

	c, ok := table["lantern"]
	if !ok {
		t.Fatalf("lantern missing from %v", table)
	}
	if math.Abs(c.Prob-0.75) > epsilon {
		t.Errorf("lantern prob = %v, want 0.75", c.Prob)
	}
	if math.Abs(c.Expected-1.0) > epsilon {
		t.Errorf("lantern expected = %v, want 1.0", c.Expected)
	}
}

func TestForSpecial_NotFound(t *testing.T) {
	a := newAggregator(t)
	_, err := a.ForSpecial(context.Background(), nil, nil, "missing", mapgen.KindItem)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// Mutable specials are opaque: empty loot, no error.
func TestForSpecial_MutableSkipped(t *testing.T) {
	a := newAggregator(t, map[string]any{
		"type":    "overmap_special",
		"id":      "anthill",
		"subtype": "mutable",
		"overmaps": []any{
			map[string]any{"point": []any{float64(0), float64(0), float64(0)}, "overmap": "ant_tunnel"},
		},
	})

	table, err := a.ForSpecial(context.Background(), nil, nil, "anthill", mapgen.KindItem)
	if err != nil {
		t.Fatalf("ForSpecial failed: %v", err)
	}
	if len(table) != 0 {
		t.Errorf("Expected empty table for mutable special, got %v", table)
	}
}

// A corpus replacement mid-aggregation abandons the result.
func TestForSpecial_CorpusReplaced(t *testing.T) {
	a := newAggregator(t, cabinRecords()...)

	var counter schedule.Counter
	guard := schedule.NewGuard(&counter)
	counter.Bump()

	_, err := a.ForSpecial(context.Background(), nil, guard, "twin_cabins", mapgen.KindItem)
	if !errors.Is(err, schedule.ErrCorpusReplaced) {
		t.Errorf("Expected ErrCorpusReplaced, got %v", err)
	}
}

func TestStripDirection(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cabin_north", "cabin"},
		{"cabin_south", "cabin"},
		{"cabin_east", "cabin"},
		{"cabin_west", "cabin"},
		{"cabin", "cabin"},
		{"northfield", "northfield"},
	}
	for _, tc := range tests {
		if got := StripDirection(tc.in); got != tc.want {
			t.Errorf("StripDirection(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAppearance(t *testing.T) {
	a := newAggregator(t, cabinRecords()...)

	appearance, err := a.Appearance("twin_cabins")
	if err != nil {
		t.Fatalf("Appearance failed: %v", err)
	}
	want := "C|brown|cabin;C|brown|cabin"
	if appearance != want {
		t.Errorf("Appearance = %q, want %q", appearance, want)
	}
}

func TestAppearance_UnknownTerrain(t *testing.T) {
	a := newAggregator(t, map[string]any{
		"type": "overmap_special",
		"id":   "mystery",
		"overmaps": []any{
			map[string]any{"point": []any{float64(0), float64(0), float64(0)}, "overmap": "nowhere"},
		},
	})

	appearance, err := a.Appearance("mystery")
	if err != nil {
		t.Fatalf("Appearance failed: %v", err)
	}
	if appearance != UnknownAppearance {
		t.Errorf("Appearance = %q, want %q", appearance, UnknownAppearance)
	}
}

// Identical-looking specials group together, ids sorted within a group.
func TestGroupByAppearance(t *testing.T) {
	records := cabinRecords()
	records = append(records, map[string]any{
		"type": "overmap_special",
		"id":   "another_cabins",
		"overmaps": []any{
			map[string]any{"point": []any{float64(0), float64(0), float64(0)}, "overmap": "cabin"},
			map[string]any{"point": []any{float64(1), float64(0), float64(0)}, "overmap": "cabin_east"},
		},
	})
	a := newAggregator(t, records...)

	groups, err := a.GroupByAppearance(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("GroupByAppearance failed: %v", err)
	}

	ids, ok := groups["C|brown|cabin;C|brown|cabin"]
	if !ok {
		t.Fatalf("Expected the shared appearance group, got %v", groups)
	}
	if len(ids) != 2 || ids[0] != "another_cabins" || ids[1] != "twin_cabins" {
		t.Errorf("Expected sorted [another_cabins twin_cabins], got %v", ids)
	}
}

// A name given as a translation object renders its str field.
func TestAppearance_TranslationName(t *testing.T) {
	a := newAggregator(t,
		map[string]any{
			"type": "overmap_terrain",
			"id":   "shrine",
			"sym":  "S", "color": "yellow",
			"name": map[string]any{"str": "forest shrine"},
		},
		map[string]any{
			"type": "overmap_special",
			"id":   "shrine_site",
			"overmaps": []any{
				map[string]any{"point": []any{float64(0), float64(0), float64(0)}, "overmap": "shrine"},
			},
		},
	)

	appearance, err := a.Appearance("shrine_site")
	if err != nil {
		t.Fatalf("Appearance failed: %v", err)
	}
	if appearance != "S|yellow|forest shrine" {
		t.Errorf("Appearance = %q, want %q", appearance, "S|yellow|forest shrine")
	}
}
