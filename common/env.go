// Package common provides the enumerations and environment variable names
// shared by the CLI layer, the configuration loader and the grab pipeline.
package common

// Environment variable names for configuration overrides.
const (
	// ConfigPathEnv points at an alternate credentials file when --config is not given.
	ConfigPathEnv = "PACKTGRAB_CONFIG"

	NameEnv        = "PACKTGRAB_NAME"
	PassEnv        = "PACKTGRAB_PASS"
	AntiCaptchaEnv = "PACKTGRAB_ANTICAPTCHA"
	IFTTTEnv       = "PACKTGRAB_IFTTT"
	DropboxEnv     = "PACKTGRAB_DROPBOX"

	// DebugEnv enables verbose request logging.
	DebugEnv = "PACKTGRAB_DEBUG"
)
