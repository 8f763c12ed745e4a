// Package config loads and validates the voicenotes configuration tree.
//
// Configuration comes from three layers, lowest precedence first: a YAML
// config file, a .env file, and process environment variables. Files are
// discovered relative to the working directory (cmd/<binary>/config.yml,
// config/config.yml, config.yml) unless explicit paths are given.
//
// # Usage
//
//	var cfg config.Config
//	if err := config.Load("voicenotesd", &cfg); err != nil {
//		// handle
//	}
//	cfg.ApplyDefaults()
//	if err := cfg.Validate(); err != nil {
//		// handle
//	}
//
// Environment variables address nested keys by underscore: SERVER_PORT
// sets server.port, TRANSCRIPTION_WHISPER_URL sets
// transcription.whisper.url.
package config
