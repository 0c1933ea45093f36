// Package config provides the configuration of the Scoperival client.
//
// A Config starts from NewConfig defaults and is overlaid, in increasing
// precedence, by the YAML configuration file, the environment (including a
// .env file) and finally command-line flags. Validate is called once, after
// all sources were applied and before any request is sent.
package config
