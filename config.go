// config.go defines the renderer configuration.

package vidframe

import (
	"fmt"
	"os"

	"github.com/xaionaro-go/vidframe/gpu"
	"github.com/xaionaro-go/vidframe/texturecache"
	"github.com/xaionaro-go/vidframe/types"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ScalingMode            types.ScalingMode `yaml:"scaling_mode"`
	TextureCacheMaxEntries int               `yaml:"texture_cache_max_entries"`
	ClearColor             gpu.ClearColor    `yaml:"clear_color"`

	// StartPaused keeps the playback clock stopped once the pipelines are
	// compiled; otherwise playback starts on its own.
	StartPaused bool `yaml:"start_paused"`
}

func DefaultConfig() Config {
	return Config{
		ScalingMode:            types.ScalingModeFit,
		TextureCacheMaxEntries: texturecache.DefaultMaxEntries,
		ClearColor:             gpu.ClearColor{A: 1},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to read '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse '%s': %w", path, err)
	}
	return cfg, nil
}
