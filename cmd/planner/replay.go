package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"floorplan/internal/common/config"
	"floorplan/internal/planner/engine"
	"floorplan/internal/planner/live"
	"floorplan/internal/planner/patterns"

	"github.com/spf13/cobra"
)

var (
	replayOutput  string
	replayPreview string
	replayStrict  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay [events.json]",
	Short: "Replay recorded editor input and print the resulting state",
	Long: `Replay a JSON array of input events (the same envelopes the live stream accepts)
against an empty design. Prints the final editor summary, and optionally writes
the serialized design and a preview image.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayOutput, "output", "o", "", "write serialized design state to this file")
	replayCmd.Flags().StringVar(&replayPreview, "preview", "", "write a PNG or SVG preview to this file")
	replayCmd.Flags().BoolVar(&replayStrict, "strict", false, "stop at the first rejected event")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	var events []live.IntentEnvelope
	if err := json.Unmarshal(data, &events); err != nil {
		return fmt.Errorf("parse events: %w", err)
	}

	assets := patterns.NewLoader(cfg.AssetsDir, nil)
	editor := engine.New("replay", cfg.Engine(), engine.Deps{Patterns: assets, Images: assets})

	rejected := 0
	for i, ev := range events {
		if err := live.Apply(ctx, editor, ev); err != nil {
			if replayStrict {
				return fmt.Errorf("event %d: %w", i, err)
			}
			fmt.Fprintf(os.Stderr, "event %d rejected: %v\n", i, err)
			rejected++
		}
	}
	if editor.IsDrawing() {
		editor.FinishDrawWall(ctx)
	}

	summary, err := json.MarshalIndent(editor.State(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(summary))
	fmt.Printf("Events: %d applied, %d rejected\n", len(events)-rejected, rejected)

	if replayOutput != "" {
		state, err := editor.Serialize()
		if err != nil {
			return err
		}
		if err := os.WriteFile(replayOutput, state, 0o644); err != nil {
			return fmt.Errorf("write state: %w", err)
		}
	}
	if replayPreview != "" {
		img, err := renderObjects(editor, replayPreview)
		if err != nil {
			return err
		}
		if err := os.WriteFile(replayPreview, img, 0o644); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
	}
	return nil
}
