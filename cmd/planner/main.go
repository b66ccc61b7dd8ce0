package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "Floor-plan wall drawing and room detection service",
	Long: `planner serves the interactive floor-plan editor over HTTP and websocket.
Walls are drawn point by point on a snapping grid, closed loops become rooms,
and every design is persisted to SQLite. The render and replay commands work
offline against saved designs and recorded input.`,
	Version: "1.0.0",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
