package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-json"

	"github.com/dshills/contentguide/pkg/content"
	"github.com/dshills/contentguide/pkg/loot"
)

const version = "1.0.0"

// cli is the contentguide command tree: read-only query verbs over one
// loaded corpus.
var cli struct {
	Config  string           `help:"Path to YAML configuration file." default:"contentguide.yml" type:"path"`
	Version kong.VersionFlag `help:"Print version and exit."`

	Resolve    ResolveCmd    `cmd:"" help:"Resolve one flattened entity by type and key."`
	Enumerate  EnumerateCmd  `cmd:"" help:"List every concrete entity of a type."`
	Loot       LootCmd       `cmd:"" help:"Compute the item distribution for an overmap-special."`
	Furniture  FurnitureCmd  `cmd:"" help:"Compute the furniture distribution for an overmap-special."`
	Terrain    TerrainCmd    `cmd:"" help:"Compute the terrain distribution for an overmap-special."`
	Mods       ModsCmd       `cmd:"" help:"List the mods that touched an entity."`
	Appearance AppearanceCmd `cmd:"" help:"Group overmap-specials by visual appearance."`
}

// runContext carries the loaded engine into each command's Run method.
type runContext struct {
	ctx    context.Context
	engine *content.Engine
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("contentguide"),
		kong.Description("Query a roguelike content corpus: resolve inherited records and compute analytic loot distributions."),
		kong.Vars{"version": version},
	)

	cfg, err := content.LoadConfig(cli.Config)
	kctx.FatalIfErrorf(err)

	// The CLI is a batch consumer; it never needs to yield the CPU.
	cfg.Synchronous = true

	ctx := context.Background()
	engine, err := content.LoadEngine(ctx, cfg, nil)
	kctx.FatalIfErrorf(err)

	kctx.FatalIfErrorf(kctx.Run(&runContext{ctx: ctx, engine: engine}))
}

// ResolveCmd resolves one flattened entity.
type ResolveCmd struct {
	Type string `arg:"" help:"Entity type (item, monster, mapgen, ...)."`
	Key  string `arg:"" help:"Entity id."`
}

// Run implements the resolve command.
func (c *ResolveCmd) Run(rc *runContext) error {
	flat, err := rc.engine.Current().Resolve(c.Type, c.Key)
	if err != nil {
		return err
	}
	return printJSON(flat.Fields)
}

// EnumerateCmd lists every concrete entity of a type.
type EnumerateCmd struct {
	Type string `arg:"" help:"Entity type to enumerate."`
	Keys bool   `help:"Print keys only, one per line."`
}

// Run implements the enumerate command.
func (c *EnumerateCmd) Run(rc *runContext) error {
	flats := rc.engine.Current().Enumerate(c.Type)
	if c.Keys {
		for _, f := range flats {
			fmt.Println(f.Key)
		}
		return nil
	}

	records := make([]map[string]any, 0, len(flats))
	for _, f := range flats {
		records = append(records, f.Fields)
	}
	return printJSON(records)
}

// LootCmd computes an overmap-special's item distribution.
type LootCmd struct {
	Special string `arg:"" help:"Overmap-special id."`
}

// Run implements the loot command.
func (c *LootCmd) Run(rc *runContext) error {
	table, err := rc.engine.LootForSpecial(rc.ctx, nil, c.Special)
	if err != nil {
		return err
	}
	return printTable(table)
}

// FurnitureCmd computes an overmap-special's furniture distribution.
type FurnitureCmd struct {
	Special string `arg:"" help:"Overmap-special id."`
}

// Run implements the furniture command.
func (c *FurnitureCmd) Run(rc *runContext) error {
	table, err := rc.engine.FurnitureForSpecial(rc.ctx, nil, c.Special)
	if err != nil {
		return err
	}
	return printTable(table)
}

// TerrainCmd computes an overmap-special's terrain distribution.
type TerrainCmd struct {
	Special string `arg:"" help:"Overmap-special id."`
}

// Run implements the terrain command.
func (c *TerrainCmd) Run(rc *runContext) error {
	table, err := rc.engine.TerrainForSpecial(rc.ctx, nil, c.Special)
	if err != nil {
		return err
	}
	return printTable(table)
}

// ModsCmd lists the mods that touched one entity.
type ModsCmd struct {
	Type         string `arg:"" help:"Entity type."`
	Key          string `arg:"" help:"Entity id."`
	Contributing bool   `help:"Include mods contributing through copy-from ancestors."`
}

// Run implements the mods command.
func (c *ModsCmd) Run(rc *runContext) error {
	corpus := rc.engine.Current()
	var mods []string
	if c.Contributing {
		mods = corpus.ContributingMods(c.Type, c.Key)
	} else {
		mods = corpus.DirectMods(c.Type, c.Key)
	}
	for _, m := range mods {
		fmt.Println(m)
	}
	return nil
}

// AppearanceCmd groups overmap-specials by appearance.
type AppearanceCmd struct{}

// Run implements the appearance command.
func (c *AppearanceCmd) Run(rc *runContext) error {
	groups, err := rc.engine.GroupSpecialsByAppearance(rc.ctx, nil)
	if err != nil {
		return err
	}
	return printJSON(groups)
}

// printTable renders a loot table sorted by descending probability,
// then id, so the most likely finds lead the output.
func printTable(table loot.Table) error {
	type row struct {
		ID       string  `json:"id"`
		Prob     float64 `json:"prob"`
		Expected float64 `json:"expected"`
	}

	rows := make([]row, 0, len(table))
	for _, id := range table.Ids() {
		c := table[id]
		rows = append(rows, row{ID: id, Prob: c.Prob, Expected: c.Expected})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Prob > rows[j].Prob })

	return printJSON(rows)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(data, '\n'))
	return err
}
