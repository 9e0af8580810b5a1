package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/signpost-dev/signpost/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔═╗┬┌─┐┌┐┌┌─┐┌─┐┌─┐┌┬┐
  ╚═╗││ ┬│││├─┘│ │└─┐ │
  ╚═╝┴└─┘┘└┘┴  └─┘└─┘ ┴
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "signpost",
		Short: "Declarative routing for Go applications",
		Long: `Signpost is a declarative routing engine.

Define nested route trees with parametrized patterns, match and build
URLs, and run guarded transitions between routes. The CLI works against
a signpost.json or signpost.toml route configuration:

  • lint:  validate a route configuration
  • match: resolve a path to a route and its parameters
  • build: build the URL for a named route
  • tree:  print the compiled route tree
  • serve: expose the router over HTTP for development`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		lintCmd(),
		matchCmd(),
		buildCmd(),
		treeCmd(),
		serveCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// printBanner prints the signpost ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
