package main

import (
	"github.com/spf13/cobra"

	"github.com/signpost-dev/signpost/internal/config"
	"github.com/signpost-dev/signpost/pkg/routetree"
)

func lintCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Validate a route configuration",
		Long: `Validate a route configuration file.

Checks that every route has a name and a compilable path pattern, and
that no two siblings collide on name or path.

Examples:
  signpost lint
  signpost lint --file routes/signpost.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(file)
			if err != nil {
				return err
			}

			tree, err := cfg.Tree()
			if err != nil {
				return err
			}

			success("%s is valid", cfg.Path())
			info("%d routes compiled", countRoutes(tree.Definitions()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Configuration file (default: signpost.json or signpost.toml)")

	return cmd
}

// loadConfig loads the named file, or searches the working directory.
func loadConfig(file string) (*config.Config, error) {
	if file != "" {
		return config.LoadFile(file)
	}
	return config.Load(".")
}

func countRoutes(defs []routetree.Definition) int {
	n := 0
	for _, def := range defs {
		n += 1 + countRoutes(def.Children)
	}
	return n
}
