// Package config loads and validates the station configuration.
//
// Values merge in three layers: compiled-in baseline, optional YAML file,
// then GCS_* environment overrides. The merged result is validated before
// any component sees it.
package config
