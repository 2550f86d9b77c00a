package config

import "imgdup/imageprocessor"

const (
	defaultHashSize   = 8
	defaultThreshold  = 3.0 // percent
	defaultHasher     = imageprocessor.HasherGoImageHash
	defaultFormat     = "text"
	defaultLogLevel   = "warn"
	defaultLogFormat  = "text"
	defaultJSONIndent = 0
)

var defaultExtensions = []string{"jpeg", "jpg", "png"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Dir:        ".",
		Extensions: append([]string(nil), defaultExtensions...),
		HashSize:   defaultHashSize,
		Threshold:  defaultThreshold,
		Hasher:     defaultHasher,
		Output: Output{
			Format:     defaultFormat,
			JSONIndent: defaultJSONIndent,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
