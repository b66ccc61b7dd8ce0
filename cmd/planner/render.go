package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"floorplan/internal/common/config"
	"floorplan/internal/planner/engine"
	"floorplan/internal/planner/patterns"
	"floorplan/internal/planner/render"
	"floorplan/internal/planner/repository"

	"github.com/spf13/cobra"
)

var (
	renderOutput string
	renderState  string
	renderWidth  int
	renderHeight int
)

var renderCmd = &cobra.Command{
	Use:   "render [design-id]",
	Short: "Render a saved design to PNG or SVG",
	Long: `Render a design from the planner database, or from a state file with --state.
The output format follows the extension of --output (.png or .svg).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "plan.png", "output file (.png or .svg)")
	renderCmd.Flags().StringVar(&renderState, "state", "", "read design state from a JSON file instead of the database")
	renderCmd.Flags().IntVar(&renderWidth, "width", 1024, "PNG width in pixels")
	renderCmd.Flags().IntVar(&renderHeight, "height", 768, "PNG height in pixels")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := config.Load()

	editor, err := openEditor(ctx, cfg, args)
	if err != nil {
		return err
	}

	data, err := renderObjects(editor, renderOutput)
	if err != nil {
		return err
	}
	if err := os.WriteFile(renderOutput, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", renderOutput, err)
	}
	fmt.Printf("Rendered %d rooms to %s\n", len(editor.Rooms()), renderOutput)
	return nil
}

// openEditor поднимает дизайн из файла состояния или из базы.
func openEditor(ctx context.Context, cfg *config.Config, args []string) (*engine.Editor, error) {
	assets := patterns.NewLoader(cfg.AssetsDir, nil)
	deps := engine.Deps{Patterns: assets, Images: assets}

	if renderState != "" {
		data, err := os.ReadFile(renderState)
		if err != nil {
			return nil, fmt.Errorf("read state: %w", err)
		}
		editor := engine.New(strings.TrimSuffix(filepath.Base(renderState), filepath.Ext(renderState)), cfg.Engine(), deps)
		if err := editor.ApplyState(ctx, data); err != nil {
			return nil, fmt.Errorf("apply state: %w", err)
		}
		return editor, nil
	}

	if len(args) != 1 {
		return nil, fmt.Errorf("design id or --state required")
	}
	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer db.Close()
	repo := repository.New(db)
	if err := repo.Init(ctx); err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	deps.Store = repo
	editor := engine.New(args[0], cfg.Engine(), deps)
	ok, err := editor.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("design %s: %w", args[0], repository.ErrNotFound)
	}
	return editor, nil
}

func renderObjects(editor *engine.Editor, output string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".svg":
		svg, err := render.NewSVGRenderer().Render(editor.Objects())
		if err != nil {
			return nil, fmt.Errorf("render svg: %w", err)
		}
		return []byte(svg), nil
	case ".png", "":
		opts := render.DefaultRasterOptions()
		opts.Width, opts.Height = renderWidth, renderHeight
		var buf bytes.Buffer
		if err := render.PNG(&buf, editor.Objects(), opts); err != nil {
			return nil, fmt.Errorf("render png: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", filepath.Ext(output))
	}
}
