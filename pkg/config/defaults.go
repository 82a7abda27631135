package config

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultProbeInterval        = 30 * time.Second
	DefaultAPIKeyEnv            = "OPENAI_API_KEY"
	DefaultModel                = "gpt-4o-mini"
	DefaultLanguage             = "en"
	DefaultSeparators           = ":->.,;"
	DefaultReconnectMinInterval = 30 * time.Second
	DefaultReportInterval       = 15 * time.Minute
	DefaultStatusHost           = "127.0.0.1"
	DefaultStatusPort           = 18791
	DefaultLogFormat            = "text"
	DefaultLogLevel             = "info"
	DefaultSDKLogLevel          = "warn"
)

// DefaultRanges are the extra letter ranges accepted in hint tokens: Latin-1
// through Greek Extended, and Glagolitic through Hangul.
var DefaultRanges = []string{"00BF-1FFF", "2C00-D7FF"}

// setDefaults registers every key so AutomaticEnv can resolve XLATOR_* overrides.
func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.allow_from", []string{})
	v.SetDefault("telegram.probe_interval", DefaultProbeInterval)

	v.SetDefault("translate.api_key_env", DefaultAPIKeyEnv)
	v.SetDefault("translate.base_url", "")
	v.SetDefault("translate.model", DefaultModel)
	v.SetDefault("translate.request_timeout", time.Duration(0))

	v.SetDefault("hints.file", "")
	v.SetDefault("hints.default_language", DefaultLanguage)
	v.SetDefault("hints.separators", DefaultSeparators)
	v.SetDefault("hints.ranges", DefaultRanges)

	v.SetDefault("session.reconnect_min_interval", DefaultReconnectMinInterval)

	v.SetDefault("diagnostics.report_interval", DefaultReportInterval)

	v.SetDefault("status.enabled", true)
	v.SetDefault("status.host", DefaultStatusHost)
	v.SetDefault("status.port", DefaultStatusPort)

	v.SetDefault("logging.format", DefaultLogFormat)
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.sdk_level", DefaultSDKLogLevel)
	v.SetDefault("logging.add_source", false)
}
