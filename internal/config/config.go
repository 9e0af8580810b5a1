package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/signpost-dev/signpost/internal/errors"
	"github.com/signpost-dev/signpost/pkg/pathmatch"
	"github.com/signpost-dev/signpost/pkg/router"
	"github.com/signpost-dev/signpost/pkg/routetree"
)

const (
	// JSONFileName is the default JSON configuration file name.
	JSONFileName = "signpost.json"

	// TOMLFileName is the default TOML configuration file name.
	TOMLFileName = "signpost.toml"
)

// Config represents a complete signpost configuration: the route forest
// plus router options.
type Config struct {
	// Name is the project name.
	Name string `json:"name,omitempty" toml:"name"`

	// Options configures the router built from this file.
	Options OptionsConfig `json:"options,omitempty" toml:"options"`

	// Routes is the route definition forest.
	Routes []RouteConfig `json:"routes" toml:"routes"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// OptionsConfig mirrors router.Options in a serializable shape.
type OptionsConfig struct {
	// DefaultRoute is navigated to when the start path matches nothing.
	DefaultRoute string `json:"defaultRoute,omitempty" toml:"defaultRoute"`

	// DefaultParams are the parameters used with DefaultRoute.
	DefaultParams map[string]any `json:"defaultParams,omitempty" toml:"defaultParams"`

	// CaseSensitive enables case-sensitive path matching.
	CaseSensitive bool `json:"caseSensitive,omitempty" toml:"caseSensitive"`

	// StrictTrailingSlash rejects trailing slashes absent from the pattern.
	StrictTrailingSlash bool `json:"strictTrailingSlash,omitempty" toml:"strictTrailingSlash"`

	// QueryParamsMode is "default", "strict" or "loose".
	QueryParamsMode string `json:"queryParamsMode,omitempty" toml:"queryParamsMode"`

	// AllowNotFound commits unmatched paths as a synthetic state.
	AllowNotFound bool `json:"allowNotFound,omitempty" toml:"allowNotFound"`

	// AutoCleanUp drops activation guards of deactivated segments.
	AutoCleanUp bool `json:"autoCleanUp,omitempty" toml:"autoCleanUp"`

	// MaxRedirects caps guard-issued redirect chains.
	MaxRedirects int `json:"maxRedirects,omitempty" toml:"maxRedirects"`
}

// RouteConfig is one route definition in the file.
type RouteConfig struct {
	// Name is the route's own (dot-free) name.
	Name string `json:"name" toml:"name"`

	// Path is the route's pattern.
	Path string `json:"path" toml:"path"`

	// ForwardTo redirects this route to another named route.
	ForwardTo string `json:"forwardTo,omitempty" toml:"forwardTo"`

	// Children are the nested routes.
	Children []RouteConfig `json:"children,omitempty" toml:"children"`

	// Extra is opaque pass-through data preserved on the tree node.
	Extra map[string]any `json:"extra,omitempty" toml:"extra"`
}

// Load reads configuration from the specified directory, preferring
// signpost.json over signpost.toml.
func Load(dir string) (*Config, error) {
	for _, name := range []string{JSONFileName, TOMLFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("E100").
		WithDetail("No " + JSONFileName + " or " + TOMLFileName + " found in " + dir).
		WithSuggestion("Create " + JSONFileName + " with a \"routes\" array")
}

// LoadFile reads configuration from the specified file path. The format
// is chosen by extension: .json or .toml.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E100").
				WithDetail("No configuration file at " + path)
		}
		return nil, errors.New("E101").Wrap(err)
	}

	cfg := &Config{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E101").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid JSON")
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New("E101").
				WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
				WithSuggestion("Check that the file is valid TOML")
		}
	default:
		return nil, errors.New("E102").
			WithDetail("Unrecognized extension " + filepath.Ext(path))
	}

	cfg.configPath = path
	return cfg, nil
}

// SaveTo writes the configuration to the specified path as JSON.
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.New("E101").Wrap(err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.New("E101").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Definitions converts the configured routes to tree definitions.
func (c *Config) Definitions() []routetree.Definition {
	return toDefinitions(c.Routes)
}

func toDefinitions(routes []RouteConfig) []routetree.Definition {
	if len(routes) == 0 {
		return nil
	}
	out := make([]routetree.Definition, len(routes))
	for i, rc := range routes {
		out[i] = routetree.Definition{
			Name:      rc.Name,
			Path:      rc.Path,
			ForwardTo: rc.ForwardTo,
			Children:  toDefinitions(rc.Children),
			Extra:     rc.Extra,
		}
	}
	return out
}

// RouterOptions converts the configured options to router.Options.
func (c *Config) RouterOptions() router.Options {
	return router.Options{
		DefaultRoute:        c.Options.DefaultRoute,
		DefaultParams:       c.Options.DefaultParams,
		CaseSensitive:       c.Options.CaseSensitive,
		StrictTrailingSlash: c.Options.StrictTrailingSlash,
		QueryParamsMode:     pathmatch.QueryParamsMode(c.Options.QueryParamsMode),
		AllowNotFound:       c.Options.AllowNotFound,
		AutoCleanUp:         c.Options.AutoCleanUp,
		MaxRedirects:        c.Options.MaxRedirects,
	}
}

// Router builds a router from the configuration.
func (c *Config) Router() (*router.Router, error) {
	r, err := router.New(c.Definitions(), c.RouterOptions())
	if err != nil {
		return nil, routeError(err)
	}
	return r, nil
}

// Tree builds the route tree from the configuration.
func (c *Config) Tree() (*routetree.Tree, error) {
	tree, err := routetree.NewBuilder().AddMany(c.Definitions()).Build(routetree.BuildOptions{})
	if err != nil {
		return nil, routeError(err)
	}
	return tree, nil
}

// routeError maps tree-build failures onto registered error codes.
func routeError(err error) error {
	switch err.(type) {
	case *routetree.DuplicateRouteError:
		return errors.New("E121").Wrap(err).WithDetail(err.Error())
	case *routetree.InvalidRouteError:
		return errors.New("E120").Wrap(err).WithDetail(err.Error())
	default:
		return errors.New("E120").Wrap(err)
	}
}
