// Package config loads the single JSON configuration file consumed at
// startup. All components receive their settings explicitly from the loaded
// Config; there is no process-wide settings singleton.
package config
