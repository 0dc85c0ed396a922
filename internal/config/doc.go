// Package config provides the widgetbus session configuration.
//
// Configuration is layered, later layers winning:
//
//	Default()            built-in values
//	config file          TOML (.toml) or YAML (.yaml, .yml)
//	.env file            loaded into the process environment (optional)
//	environment          WIDGETBUS_* variables
//
// Example TOML:
//
//	version = "1.0"
//
//	[window]
//	title = "widgetbus"
//
//	[session]
//	notify_buffer = 128
//	tick_interval = "1s"
//
//	[script]
//	path = "hello.lua"
//	watch = true
//
// Environment variables use the section as a prefix, for example
// WIDGETBUS_SESSION_NOTIFY_BUFFER=256 or WIDGETBUS_LOGGING_LEVEL=debug.
//
// The Watcher reports changes to the config and script files so the host
// loop can reload them without restarting.
package config
