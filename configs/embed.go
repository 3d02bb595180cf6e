// Package configs embeds the configuration template written by
// `symdex config init`.
//
// The template documents every key of internal/config.Config and the
// environment variables that override them. Edit symdex.example.yaml and
// rebuild to change what new installs get.
package configs

import _ "embed"

// ConfigTemplate is the commented YAML written to the user config path
// (or, with --project, to .symdex.yaml in the working directory).
//
//go:embed symdex.example.yaml
var ConfigTemplate string
