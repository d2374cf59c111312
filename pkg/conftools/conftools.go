package conftools

import (
	"fmt"
	"slices"
	"sort"

	"github.com/mitchellh/mapstructure"
	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const redacted = "***REDACTED***"

func decoderHook(dc *mapstructure.DecoderConfig) {
	dc.TagName = "json"
	dc.ErrorUnused = true
}

// LoadFile decodes a configuration file into cfg using its json struct tags.
// Keys in the file that cfg does not declare are an error.
func LoadFile(path string, cfg any) error {
	v := viper.New()
	v.SetConfigFile(path)

	err := v.ReadInConfig()
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	err = v.Unmarshal(cfg, decoderHook)
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}

	return nil
}

// FromFlags returns a viper instance holding the values of all flags in the set.
func FromFlags(flags *flag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	err := v.BindPFlags(flags)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Return a human-readable printout of all configuration options, except secret stuff.
func Format(v *viper.Viper, disallowedKeys []string) []string {
	var keys sort.StringSlice = v.AllKeys()

	printed := make([]string, 0, len(keys))

	keys.Sort()
	for _, key := range keys {
		if slices.Contains(disallowedKeys, key) {
			printed = append(printed, fmt.Sprintf("%s: %s", key, redacted))
		} else {
			printed = append(printed, fmt.Sprintf("%s: %v", key, v.Get(key)))
		}
	}

	return printed
}
