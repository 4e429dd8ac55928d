// Package config loads service configuration with Viper.
//
// Values come from a YAML (or JSON / TOML) file, an optional .env file
// and the process environment, in that order of increasing precedence.
// Environment variables map onto nested keys by splitting on
// underscores, so DIARIZATION_TAU_ACTIVE sets diarization.tau_active.
//
// # Usage
//
//	var cfg AppConfig
//	err := config.LoadConfig("diarization-server", &cfg)
package config
