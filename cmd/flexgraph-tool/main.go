// Command flexgraph-tool is an offline inspector for on-disk flexgraph
// state: snapshot directories (per pkg/snapshot) and WAL segments (per
// pkg/wal). It never opens a query session; everything here reads
// files and prints what it finds.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flexgraph-db/flexgraph/pkg/log"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "flexgraph-tool",
	Short:   "Offline inspector for flexgraph snapshots and WAL segments",
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("flexgraph-tool version %s (%s)\n", Version, Commit))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(inspectCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOut})
}
