package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/signpost-dev/signpost/pkg/routetree"
)

func treeCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the compiled route tree",
		Long: `Print the compiled route tree.

Children appear in match order: static siblings are tried before
parametrized ones, catch-alls last.

Example:
  signpost tree`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(file)
			if err != nil {
				return err
			}
			tree, err := cfg.Tree()
			if err != nil {
				return err
			}

			printBanner()
			fmt.Println()
			for _, node := range tree.Root().Children() {
				printNode(node, 0)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Configuration file")

	return cmd
}

func printNode(node *routetree.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	marker := ""
	if node.Absolute() {
		marker = "  (absolute)"
	}
	fmt.Printf("%s%s  \033[90m%s\033[0m%s\n", indent, node.Name(), node.Path(), marker)
	for _, child := range node.Children() {
		printNode(child, depth+1)
	}
}
