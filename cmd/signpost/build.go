package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func buildCmd() *cobra.Command {
	var (
		file   string
		params []string
	)

	cmd := &cobra.Command{
		Use:   "build <route>",
		Short: "Build the URL for a named route",
		Long: `Build the URL for a dotted route name.

Parameters are supplied as repeated --param name=value flags.

Examples:
  signpost build users.view --param id=42
  signpost build search --param q=golang --param page=2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(file)
			if err != nil {
				return err
			}
			r, err := cfg.Router()
			if err != nil {
				return err
			}

			values := make(map[string]any, len(params))
			for _, p := range params {
				name, value, ok := strings.Cut(p, "=")
				if !ok {
					return fmt.Errorf("malformed --param %q, want name=value", p)
				}
				values[name] = value
			}

			path, err := r.BuildPath(args[0], values)
			if err != nil {
				return err
			}
			fmt.Println(path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Configuration file")
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "Route parameter as name=value (repeatable)")

	return cmd
}
