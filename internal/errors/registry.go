package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No signpost.json or signpost.toml was found in the working directory.",
		DocURL:   "https://signpost.dev/docs/errors/E100",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Failed to read configuration",
		Detail:   "The configuration file exists but could not be read or parsed.",
		DocURL:   "https://signpost.dev/docs/errors/E101",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Unsupported configuration format",
		Detail:   "Route configuration must be a .json or .toml file.",
		DocURL:   "https://signpost.dev/docs/errors/E102",
	},

	// ============================================
	// Route Definition Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryRoutes,
		Message:  "Invalid route definition",
		Detail:   "A route is missing a name or path, or its path pattern does not compile.",
		DocURL:   "https://signpost.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryRoutes,
		Message:  "Duplicate route",
		Detail:   "Two sibling routes share a name or a literal path.",
		DocURL:   "https://signpost.dev/docs/errors/E121",
	},
	"E122": {
		Category: CategoryRoutes,
		Message:  "Unknown route name",
		Detail:   "The dotted route name does not exist in the configured route tree.",
		DocURL:   "https://signpost.dev/docs/errors/E122",
	},

	// ============================================
	// CLI Errors (E140-E159)
	// ============================================

	"E140": {
		Category: CategoryCLI,
		Message:  "Invalid command arguments",
		Detail:   "The command was invoked with missing or malformed arguments.",
		DocURL:   "https://signpost.dev/docs/errors/E140",
	},
	"E141": {
		Category: CategoryCLI,
		Message:  "Path does not match any route",
		Detail:   "The given path was tested against every route in the tree and none matched.",
		DocURL:   "https://signpost.dev/docs/errors/E141",
	},
}
