package prove

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gnolang/vcprove/internal"
	"github.com/gnolang/vcprove/internal/prover"
)

const DefaultConfigFile = ".vcprove.yaml"

// Config is the content of a .vcprove.yaml file.
type Config struct {
	Name                   string        `yaml:"name"`
	Timeout                time.Duration `yaml:"timeout"`
	Tries                  int           `yaml:"tries"`
	Jobs                   int           `yaml:"jobs"`
	AllowNewSymbols        bool          `yaml:"allow_new_symbols"`
	ShowResultsIfNotProved bool          `yaml:"show_results_if_not_proved"`
	PrintVCEachStep        bool          `yaml:"print_vc_each_step"`
	CacheDir               string        `yaml:"cache_dir"`
	NoProofFile            bool          `yaml:"no_proof_file"`
	DefaultImports         []string      `yaml:"default_imports"`
}

func DefaultConfig() Config {
	defaults := prover.DefaultConfig()
	return Config{
		Name:                   "vcprove",
		Timeout:                defaults.Timeout,
		Tries:                  defaults.Tries,
		Jobs:                   defaults.Jobs,
		AllowNewSymbols:        defaults.AllowNewSymbols,
		ShowResultsIfNotProved: defaults.ShowResultsIfNotProved,
		PrintVCEachStep:        defaults.PrintVCEachStep,
		DefaultImports:         []string{"Boolean_Theory"},
	}
}

// EngineConfig converts c into the settings of an engine.
func (c Config) EngineConfig() internal.EngineConfig {
	return internal.EngineConfig{
		Prover: prover.Config{
			Timeout:                c.Timeout,
			Tries:                  c.Tries,
			Jobs:                   c.Jobs,
			AllowNewSymbols:        c.AllowNewSymbols,
			ShowResultsIfNotProved: c.ShowResultsIfNotProved,
			PrintVCEachStep:        c.PrintVCEachStep,
		},
		Imports:     internal.ImportConfig{DefaultImports: c.DefaultImports},
		CacheDir:    c.CacheDir,
		NoProofFile: c.NoProofFile,
	}
}

// LoadConfig reads the configuration file over the defaults. A missing file,
// or an empty path, yields the defaults.
func LoadConfig(configurationPath string) (Config, error) {
	config := DefaultConfig()
	if configurationPath == "" {
		return config, nil
	}
	config, err := parseConfigurationFile(configurationPath, config)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultConfig(), nil
	}
	return config, err
}

func parseConfigurationFile(configurationPath string, config Config) (Config, error) {
	// Read the configuration file
	f, err := os.Open(configurationPath)
	if err != nil {
		return config, err
	}
	defer f.Close()

	// Parse the configuration file
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	err = decoder.Decode(&config)
	if err != nil && !errors.Is(err, io.EOF) {
		return config, err
	}

	return config, nil
}
