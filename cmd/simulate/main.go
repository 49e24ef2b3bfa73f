// Command simulate drives a simcore.World headlessly from the command
// line: load a scenario (built-in or YAML file), advance it a fixed
// number of frames, and print a JSON snapshot of bodies and crafts. It
// has no HTTP surface and exercises the same world/runner code paths a
// live server uses, useful for scripted scenario validation.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/star/orbitsim/internal/nbody"
	"github.com/star/orbitsim/internal/simcore"
)

func main() {
	presetPath := flag.String("preset", "", "path to a YAML scenario file (default: built-in sol-terra-ember)")
	frames := flag.Int("frames", 300, "number of fixed-step frames to advance before printing")
	launchCraft := flag.Int("launch", -1, "craft id to launch from orbit at start, if any")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	preset := simcore.SolTerraEmber()
	if *presetPath != "" {
		loaded, err := simcore.LoadPresetFile(*presetPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "load preset:", err)
			os.Exit(1)
		}
		preset = loaded
	}

	world := simcore.New(simcore.DefaultConfig(), logger)
	world.Reset(preset)

	if *launchCraft >= 0 {
		if err := world.Launch(*launchCraft); err != nil {
			fmt.Fprintln(os.Stderr, "launch:", err)
			os.Exit(1)
		}
	}

	ctx := context.Background()
	realDt := nbody.DtFixed
	for i := 0; i < *frames; i++ {
		world.Tick(ctx, realDt)
	}

	snapshot := snapshotView{
		Preset: preset.Name,
		Frame:  *frames,
	}
	for _, b := range world.Bodies() {
		snapshot.Bodies = append(snapshot.Bodies, bodySnapshot{
			ID: b.ID, Name: b.Name,
			PosX: b.Current.Pos.X, PosY: b.Current.Pos.Y,
			VelX: b.Current.Vel.X, VelY: b.Current.Vel.Y,
		})
	}
	for _, c := range world.Crafts() {
		snapshot.Crafts = append(snapshot.Crafts, craftSnapshot{
			ID: c.ID, Name: c.Name, Kind: c.State.Kind.String(),
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		fmt.Fprintln(os.Stderr, "encode snapshot:", err)
		os.Exit(1)
	}
}

type snapshotView struct {
	Preset string          `json:"preset"`
	Frame  int             `json:"frame"`
	Bodies []bodySnapshot  `json:"bodies"`
	Crafts []craftSnapshot `json:"crafts"`
}

type bodySnapshot struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	PosX float64 `json:"pos_x"`
	PosY float64 `json:"pos_y"`
	VelX float64 `json:"vel_x"`
	VelY float64 `json:"vel_y"`
}

type craftSnapshot struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}
