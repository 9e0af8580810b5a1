package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/signpost-dev/signpost/internal/errors"
)

func matchCmd() *cobra.Command {
	var (
		file    string
		asJSON  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "match <path>",
		Short: "Resolve a path to a route",
		Long: `Resolve a path against the configured route tree.

Prints the matched route's dotted name and captured parameters, or
fails when nothing matches.

Examples:
  signpost match /users/42
  signpost match "/search?q=go" --json`,
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

			st := r.Match(args[0])
			if st == nil {
				return errors.New("E141").
					WithDetail(fmt.Sprintf("%q does not match any of the configured routes", args[0]))
			}

			if asJSON {
				out, err := json.MarshalIndent(map[string]any{
					"name":   st.Name,
					"params": st.Params,
				}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(out))
				return nil
			}

			success("matched %s", st.Name)
			for name, value := range st.Params {
				info("%s = %v", name, value)
			}
			if verbose {
				tree, err := cfg.Tree()
				if err == nil {
					if node := tree.Get(st.Name); node != nil {
						info("pattern chain:")
						for _, seg := range node.Chain() {
							info("  %s  %s", seg.FullName(), seg.Path())
						}
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Configuration file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Print the matched segment chain")

	return cmd
}
