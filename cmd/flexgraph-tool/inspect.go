package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flexgraph-db/flexgraph/pkg/schema"
	"github.com/flexgraph-db/flexgraph/pkg/snapshot"
	"github.com/flexgraph-db/flexgraph/pkg/version"
	"github.com/flexgraph-db/flexgraph/pkg/wal"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Inspect on-disk flexgraph state",
}

var inspectSnapshotCmd = &cobra.Command{
	Use:   "snapshot DIR",
	Short: "Restore a snapshot directory against a schema file and print its shape",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		schemaPath, _ := cmd.Flags().GetString("schema")
		if schemaPath == "" {
			return fmt.Errorf("--schema is required")
		}

		f, err := os.Open(schemaPath)
		if err != nil {
			return fmt.Errorf("open schema: %w", err)
		}
		defer f.Close()

		sch, err := schema.LoadYAML(f)
		if err != nil {
			return fmt.Errorf("load schema: %w", err)
		}

		frag, err := snapshot.Restore(dir, sch, version.NewManager())
		if err != nil {
			return fmt.Errorf("restore %s: %w", dir, err)
		}

		fmt.Printf("Snapshot: %s\n\n", dir)
		fmt.Println("Vertex labels:")
		for _, label := range frag.VertexLabels() {
			vt, _ := frag.VertexTable(label)
			fmt.Printf("  %-20s %d vertices\n", vt.Name, vt.VertexNum())
		}

		fmt.Println("\nEdge triplets:")
		for _, triplet := range frag.Triplets() {
			out, hasOut := frag.OutAdjacency(triplet)
			in, hasIn := frag.InAdjacency(triplet)
			name := "?"
			if hasOut {
				name = out.Name
			} else if hasIn {
				name = in.Name
			}
			fmt.Printf("  %-20s %s (out=%v in=%v)\n", name, triplet, hasOut, hasIn)
		}
		return nil
	},
}

var inspectWALCmd = &cobra.Command{
	Use:   "wal DIR",
	Short: "Scan wal_*.log segments under DIR and summarize their records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		paths, err := filepath.Glob(filepath.Join(dir, "wal_*.log"))
		if err != nil {
			return fmt.Errorf("glob: %w", err)
		}
		if len(paths) == 0 {
			fmt.Printf("No wal_*.log segments found under %s\n", dir)
			return nil
		}

		var totalInsert, totalUpdate int
		var minTs, maxTs uint32
		first := true

		for _, p := range paths {
			data, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("read %s: %w", p, err)
			}
			offset := 0
			segInsert, segUpdate := 0, 0
			for offset < len(data) {
				rec, consumed, truncated := wal.DecodeRecord(data[offset:])
				if truncated {
					fmt.Printf("  %s: %d trailing bytes look truncated, ignored\n", filepath.Base(p), len(data)-offset)
					break
				}
				switch rec.Kind {
				case wal.KindInsert:
					segInsert++
				case wal.KindUpdate:
					segUpdate++
				}
				ts := uint32(rec.Timestamp)
				if first || ts < minTs {
					minTs = ts
				}
				if first || ts > maxTs {
					maxTs = ts
				}
				first = false
				offset += consumed
			}
			fmt.Printf("  %-24s insert=%-6d update=%-6d bytes=%d\n", filepath.Base(p), segInsert, segUpdate, len(data))
			totalInsert += segInsert
			totalUpdate += segUpdate
		}

		fmt.Printf("\nTotal: %d insert records, %d update records, timestamp range [%d, %d]\n",
			totalInsert, totalUpdate, minTs, maxTs)
		return nil
	},
}

func init() {
	inspectSnapshotCmd.Flags().String("schema", "", "Path to the GraphScope-FLEX-shaped schema YAML file (required)")
	inspectCmd.AddCommand(inspectSnapshotCmd)
	inspectCmd.AddCommand(inspectWALCmd)
}
