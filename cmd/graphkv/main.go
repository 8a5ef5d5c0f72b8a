// Package main provides the graphkv CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/orneryd/graphkv/pkg/config"
	"github.com/orneryd/graphkv/pkg/graph"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "graphkv",
		Short: "graphkv - a property-graph engine over a sorted key-value store",
	}
	rootCmd.PersistentFlags().String("data-dir", "./data", "Data directory")
	rootCmd.PersistentFlags().String("graph-name", "graph", "Graph name (also the named-index table prefix)")

	rootCmd.AddCommand(versionCmd(), initCmd(), openCmd(), statsCmd(), gcCmd(), indexCmd(), keyIndexCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("graphkv v%s (%s)\n", version, commit)
		},
	}
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new graphkv data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")
			if err := os.MkdirAll(dataDir, 0755); err != nil {
				return fmt.Errorf("creating %s: %w", dataDir, err)
			}

			configPath := filepath.Join(dataDir, "graphkv.yaml")
			if _, err := os.Stat(configPath); err == nil {
				fmt.Printf("config already exists: %s\n", configPath)
				return nil
			}
			const defaultConfig = `graph_name: graph
data_dir: ./data
auto_flush: true
auto_index: false
cache_max_entries: 10000
query_thread_count: 4
max_write_thread_count: 4
`
			if err := os.WriteFile(configPath, []byte(defaultConfig), 0644); err != nil {
				return fmt.Errorf("writing config: %w", err)
			}
			fmt.Printf("initialized graphkv data directory at %s\n", dataDir)
			fmt.Printf("config: %s\n", configPath)
			return nil
		},
	}
}

// openGraph opens a Graph against the data directory named by the
// persistent --data-dir flag, loading graphkv.yaml from it if present.
func openGraph(cmd *cobra.Command) (*graph.Graph, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	graphName, _ := cmd.Flags().GetString("graph-name")

	configPath := filepath.Join(dataDir, "graphkv.yaml")
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		cfg = config.LoadFromEnv()
	}
	cfg.DataDir = dataDir
	cfg.GraphName = graphName

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return graph.Open(cfg)
}

func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open",
		Short: "Open a graph, provisioning its tables, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Shutdown()
			fmt.Println("graph opened and tables provisioned")
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print vertex/edge counts and store footprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Shutdown()

			stats, err := g.Stats()
			if err != nil {
				return err
			}
			fmt.Printf("vertices:      %d\n", stats.Vertices)
			fmt.Printf("edges:         %d\n", stats.Edges)
			fmt.Printf("named indices: %d\n", stats.NamedIndices)
			fmt.Printf("indexed keys:  %d\n", stats.IndexedKeys)
			fmt.Printf("lsm size:      %d bytes\n", stats.LSMBytes)
			fmt.Printf("value log:     %d bytes\n", stats.ValueLogBytes)
			return nil
		},
	}
}

func gcCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Run value-log garbage collection and version-retention compaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Shutdown()

			if err := g.RunGC(); err != nil {
				return fmt.Errorf("value log gc: %w", err)
			}
			if err := g.Compact(); err != nil {
				return fmt.Errorf("compact: %w", err)
			}
			fmt.Println("gc complete")
			return nil
		},
	}
}

func parseKind(s string) (graph.ElementKind, error) {
	switch s {
	case "vertex":
		return graph.KindVertex, nil
	case "edge":
		return graph.KindEdge, nil
	default:
		return 0, fmt.Errorf("kind must be \"vertex\" or \"edge\", got %q", s)
	}
}

func indexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage named indices",
	}

	createCmd := &cobra.Command{
		Use:   "create <name> <vertex|edge>",
		Short: "Create a named index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[1])
			if err != nil {
				return err
			}
			g, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Shutdown()

			if _, err := g.CreateIndex(args[0], kind); err != nil {
				return err
			}
			fmt.Printf("created index %q\n", args[0])
			return nil
		},
	}

	dropCmd := &cobra.Command{
		Use:   "drop <name>",
		Short: "Drop a named index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Shutdown()

			if err := g.DropIndex(args[0]); err != nil {
				return err
			}
			fmt.Printf("dropped index %q\n", args[0])
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List named indices",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Shutdown()

			for _, idx := range g.GetIndices() {
				fmt.Printf("%s (%s)\n", idx.Name(), idx.Kind())
			}
			return nil
		},
	}

	cmd.AddCommand(createCmd, dropCmd, listCmd)
	return cmd
}

func keyIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key-index",
		Short: "Manage auto-maintained property key indices",
	}

	createCmd := &cobra.Command{
		Use:   "create <key> <vertex|edge>",
		Short: "Create a key index, backfilling existing elements",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[1])
			if err != nil {
				return err
			}
			g, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Shutdown()

			if err := g.CreateKeyIndex(args[0], kind, 0); err != nil {
				return err
			}
			fmt.Printf("created key index %q\n", args[0])
			return nil
		},
	}

	dropCmd := &cobra.Command{
		Use:   "drop <key> <vertex|edge>",
		Short: "Drop a key index",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[1])
			if err != nil {
				return err
			}
			g, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Shutdown()

			if err := g.DropKeyIndex(args[0], kind); err != nil {
				return err
			}
			fmt.Printf("dropped key index %q\n", args[0])
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list <vertex|edge>",
		Short: "List key-indexed property keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseKind(args[0])
			if err != nil {
				return err
			}
			g, err := openGraph(cmd)
			if err != nil {
				return err
			}
			defer g.Shutdown()

			for _, key := range g.GetIndexedKeys(kind) {
				fmt.Println(key)
			}
			return nil
		},
	}

	cmd.AddCommand(createCmd, dropCmd, listCmd)
	return cmd
}
