// Package config provides the crawler configuration: defaults, validation,
// the optional .afscrawler YAML file and XDG directory helpers.
package config
