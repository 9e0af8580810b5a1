// Package config loads signpost route configuration files.
//
// A configuration file declares a route forest and router options in
// JSON (signpost.json) or TOML (signpost.toml):
//
//	{
//	  "name": "myapp",
//	  "options": {"defaultRoute": "home"},
//	  "routes": [
//	    {"name": "home", "path": "/"},
//	    {"name": "users", "path": "/users", "children": [
//	      {"name": "view", "path": "/:id<\\d+>"}
//	    ]}
//	  ]
//	}
//
// Load picks the file by name, LoadFile by extension. The loaded Config
// converts to tree definitions, router options, or a ready Router.
package config
