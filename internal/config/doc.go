// Package config provides configuration management for lyricsmaster.
// Settings come from built-in defaults, an optional YAML file and CLI
// flags, in increasing order of precedence.
package config
