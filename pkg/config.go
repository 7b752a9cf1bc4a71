package pkg

import (
	"strconv"
	"strings"
	"time"

	"github.com/aquamarinepk/aqm"
)

// StringOr returns the config value for key or def when it is unset.
func StringOr(config *aqm.Config, key, def string) string {
	if config == nil {
		return def
	}
	v, _ := config.GetString(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func IntOr(config *aqm.Config, key string, def int) int {
	n, err := strconv.Atoi(StringOr(config, key, ""))
	if err != nil {
		return def
	}
	return n
}

func DurationOr(config *aqm.Config, key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(StringOr(config, key, ""))
	if err != nil {
		return def
	}
	return d
}

// ListOr splits a comma-separated value.
func ListOr(config *aqm.Config, key string, def []string) []string {
	raw := StringOr(config, key, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
