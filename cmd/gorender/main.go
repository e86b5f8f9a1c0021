// Command gorender is the thin CLI/event-loop driver described in
// SPEC_FULL.md: it loads a WAD level and its textures, opens a window, and
// drives Renderer.Render once per tick from yaw/walk keyboard input.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/waddoom/gorender"
	"github.com/waddoom/gorender/config"
	"github.com/waddoom/gorender/geom"
	"github.com/waddoom/gorender/logging"
	"github.com/waddoom/gorender/texture"
	"github.com/waddoom/gorender/wad"
	"github.com/waddoom/gorender/window"
)

// yawSpeed and walkSpeed are per-tick increments, not a physical time
// step: the event loop has no fixed frame rate to integrate against, so
// input is applied directly once per polled tick.
const (
	yawSpeed  = float32(2.5 * math.Pi / 180)
	walkSpeed = float32(4.0)
)

func main() {
	wadPath := flag.String("wad", "", "path to a WAD file (required)")
	mapName := flag.String("map", "E1M1", "map name within the WAD (e.g. E1M1)")
	configPath := flag.String("config", "", "optional path to a gorender.toml config file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *wadPath == "" {
		fmt.Fprintln(os.Stderr, "gorender: -wad is required")
		os.Exit(1)
	}

	logger := logging.NewDefaultLogger("gorender", *debug)

	if err := run(*wadPath, *mapName, *configPath, logger); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(wadPath, mapName, configPath string, logger logging.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	info, err := wad.ReadInfoTable(wadPath)
	if err != nil {
		return fmt.Errorf("read wad info table: %w", err)
	}

	m, err := wad.LoadMap(wadPath, info, mapName)
	if err != nil {
		return fmt.Errorf("load map %s: %w", mapName, err)
	}

	textures, err := loadTextures(wadPath, info, logger)
	if err != nil {
		return fmt.Errorf("load textures: %w", err)
	}

	renderer := gorender.New(m, textures, cfg, logger)

	win, err := window.New(cfg.ResWidth, cfg.ResHeight, fmt.Sprintf("gorender - %s", mapName))
	if err != nil {
		return fmt.Errorf("open window: %w", err)
	}
	defer win.Destroy()

	// No THINGS lump parsing (out of SPEC_FULL.md's wad scope, §6 never
	// names a player-start contract): spawn at the map's first vertex,
	// which always exists for any level with at least one wall.
	pos := geom.Vec2{0, 0}
	if len(m.Vertexes) > 0 {
		pos = geom.Vec2{m.Vertexes[0].X, m.Vertexes[0].Y}
	}
	var yaw float32

	for !win.ShouldClose() {
		win.PollEvents()
		if win.KeyDown(window.KeyEscape) {
			win.RequestClose()
		}

		if win.KeyDown(window.KeyLeft) {
			yaw -= yawSpeed
		}
		if win.KeyDown(window.KeyRight) {
			yaw += yawSpeed
		}

		dir := geom.Rotate(geom.Vec2{1, 0}, yaw)
		if win.KeyDown(window.KeyUp) {
			pos = pos.Add(dir.Mul(walkSpeed))
		}
		if win.KeyDown(window.KeyDown) {
			pos = pos.Sub(dir.Mul(walkSpeed))
		}

		floorHeight := float32(0)
		if s := renderer.SectorSearch(pos); s >= 0 && s < len(m.Sectors) {
			floorHeight = m.Sectors[s].FloorHeight
		}

		viewer := gorender.Viewer{
			Pos:       pos,
			Yaw:       yaw,
			EyeHeight: floorHeight + float32(cfg.EyeHeight),
		}

		strips := renderer.Render(viewer)
		win.Clear()
		for _, s := range strips {
			win.Blit(s.Column, s.Top, s.Pixels)
		}
		win.SwapBuffers()
	}

	return nil
}

// loadTextures decodes PLAYPAL, PNAMES, TEXTURE1/TEXTURE2, and every patch
// in the P_START..P_END range, then composes and caches every named wall
// texture, per the texture composer contract of §6.
func loadTextures(wadPath string, info *wad.InfoTable, logger logging.Logger) (*texture.Cache, error) {
	palRef, ok := info.Named["PLAYPAL"]
	if !ok {
		return nil, fmt.Errorf("PLAYPAL lump not found")
	}
	palettes, err := wad.ReadPlayPal(wadPath, palRef)
	if err != nil {
		return nil, err
	}
	if len(palettes) == 0 {
		return nil, fmt.Errorf("PLAYPAL lump decoded no palettes")
	}
	pal := palettes[0]

	pnamesRef, ok := info.Named["PNAMES"]
	if !ok {
		return nil, fmt.Errorf("PNAMES lump not found")
	}
	pnames, err := wad.ReadPatchNames(wadPath, pnamesRef)
	if err != nil {
		return nil, err
	}

	defs := map[string]texture.Definition{}
	for _, lumpName := range []string{"TEXTURE1", "TEXTURE2"} {
		ref, ok := info.Named[lumpName]
		if !ok {
			continue
		}
		d, err := wad.ReadTextures(wadPath, ref, pnames)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", lumpName, err)
		}
		for name, def := range d {
			defs[name] = def
		}
	}

	patches := map[string]*texture.Texture{}
	for name, ref := range info.Group["PATCH"] {
		p, err := wad.ReadPatch(wadPath, ref)
		if err != nil {
			logger.Warnf("patch %s: %v", name, err)
			continue
		}
		patches[name] = p.ToTexture(pal)
	}

	cache, err := texture.NewCache()
	if err != nil {
		return nil, err
	}
	for name, def := range defs {
		tex, err := texture.Compose(def, patches)
		if err != nil {
			logger.Warnf("texture %s: %v", name, err)
			continue
		}
		cache.Put(name, tex)
	}
	return cache, nil
}
