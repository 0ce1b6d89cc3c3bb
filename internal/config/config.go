// Package config loads backup sets from YAML and turns their units into
// runnable jobs.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yuya-takeyama/sure-backup/pkg/backup"
	"github.com/yuya-takeyama/sure-backup/pkg/engine"
	"github.com/yuya-takeyama/sure-backup/pkg/strategy"
)

// EnvPath names the environment variable that points at the config file.
const EnvPath = "SURE_BACKUP_CONFIG"

type Config struct {
	Sets []Set `yaml:"sets"`
}

// Set is a named group of units run together.
type Set struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	Units       []Unit `yaml:"units"`
}

// Unit is one source/target pair with its own settings.
type Unit struct {
	Name        string          `yaml:"name"`
	Source      string          `yaml:"source"`
	Target      string          `yaml:"target"`
	Mode        string          `yaml:"mode"`
	Verify      bool            `yaml:"verify"`
	ErrorPolicy string          `yaml:"error_policy"`
	Engine      string          `yaml:"engine"`
	Criteria    backup.Criteria `yaml:"criteria"`

	Excludes     []string `yaml:"excludes,omitempty"`
	ExcludeNames []string `yaml:"exclude_names,omitempty"`
}

// Engine variants accepted in a unit. Block clone and shadow copy units
// run on the sequential strategy.
const (
	EngineStandard   = "standard"
	EngineParallel   = "parallel"
	EngineCompare    = "compare"
	EngineBlockClone = "block"
	EngineShadowCopy = "vss"
)

// UnmarshalYAML fills in defaults for keys the file leaves out.
func (u *Unit) UnmarshalYAML(node *yaml.Node) error {
	type plain Unit
	p := plain{
		Mode:        "copy",
		ErrorPolicy: "continue",
		Engine:      EngineStandard,
		Criteria:    backup.DefaultCriteria(),
	}
	if err := node.Decode(&p); err != nil {
		return err
	}
	*u = Unit(p)
	return nil
}

// Default returns a starter configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Sets: []Set{{
			Name:        "Default Backup Set",
			Description: "New backup set description",
			Units: []Unit{{
				Name:        "My Documents",
				Source:      filepath.Join(home, "Documents"),
				Target:      filepath.Join(home, "Backups", "Documents"),
				Mode:        "copy",
				ErrorPolicy: "continue",
				Engine:      EngineStandard,
				Criteria:    backup.DefaultCriteria(),
			}},
		}},
	}
}

// Path returns flagValue, or the path from the environment when the flag
// is empty.
func Path(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvPath)
}

func LoadFromPath(path string) (*Config, error) {
	// #nosec G304 - path is provided by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) SaveToPath(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	// #nosec G306 - config holds no secrets
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if len(c.Sets) == 0 {
		return errors.New("config has no backup sets")
	}
	var errs []error
	for i, s := range c.Sets {
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, fmt.Errorf("set #%d: name is required", i+1))
		}
		for j, u := range s.Units {
			if err := u.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("set %q unit #%d: %w", s.Name, j+1, err))
			}
		}
	}
	return errors.Join(errs...)
}

func (u Unit) Validate() error {
	switch {
	case strings.TrimSpace(u.Name) == "":
		return errors.New("name is required")
	case u.Source == "":
		return errors.New("source is required")
	case u.Target == "":
		return errors.New("target is required")
	case filepath.Clean(u.Source) == filepath.Clean(u.Target):
		return errors.New("source and target are the same path")
	}
	if _, err := backup.ParseMode(u.Mode); err != nil {
		return err
	}
	if _, err := backup.ParseErrorPolicy(u.ErrorPolicy); err != nil {
		return err
	}
	if _, _, err := u.kind(); err != nil {
		return err
	}
	return nil
}

func (u Unit) kind() (strategy.Kind, string, error) {
	switch strings.ToLower(strings.TrimSpace(u.Engine)) {
	case "", EngineStandard, "sequential":
		return strategy.KindSequential, "", nil
	case EngineParallel:
		return strategy.KindParallel, "", nil
	case EngineCompare, "comparing":
		return strategy.KindComparing, "", nil
	case EngineBlockClone, "blockclone":
		return strategy.KindSequential, "NOTE: Block Clone Engine not fully implemented. Using Standard.", nil
	case EngineShadowCopy, "shadowcopy":
		return strategy.KindSequential, "NOTE: Shadow Copy Engine is not available. Using Standard fallback.", nil
	}
	return 0, "", fmt.Errorf("unknown engine %q", u.Engine)
}

// Job builds the runnable job for the unit. A verify run forces Verify
// mode and the comparing strategy.
func (u Unit) Job(verifyRun bool) (engine.Job, error) {
	if err := u.Validate(); err != nil {
		return engine.Job{}, fmt.Errorf("unit %q: %w", u.Name, err)
	}
	mode, _ := backup.ParseMode(u.Mode)
	policy, _ := backup.ParseErrorPolicy(u.ErrorPolicy)
	kind, note, _ := u.kind()

	if verifyRun {
		mode = backup.ModeVerify
		kind, note = strategy.KindComparing, ""
	} else if kind == strategy.KindComparing {
		note = ""
	}

	return engine.Job{
		Kind: kind,
		Note: note,
		Task: backup.Task{
			Name:         u.Name,
			Source:       u.Source,
			Target:       u.Target,
			Mode:         mode,
			Verify:       u.Verify,
			ErrorPolicy:  policy,
			Criteria:     u.Criteria,
			Excludes:     u.Excludes,
			ExcludeNames: u.ExcludeNames,
		},
	}, nil
}

// Select picks the units to run. An empty set name selects the first set;
// an empty unit name selects every unit of the set. The returned title
// names what was selected.
func (c *Config) Select(setName, unitName string) (string, []Unit, error) {
	if len(c.Sets) == 0 {
		return "", nil, errors.New("config has no backup sets")
	}

	set := &c.Sets[0]
	if setName != "" {
		set = nil
		for i := range c.Sets {
			if strings.EqualFold(c.Sets[i].Name, setName) {
				set = &c.Sets[i]
				break
			}
		}
		if set == nil {
			return "", nil, fmt.Errorf("backup set %q not found", setName)
		}
	}

	if unitName == "" {
		return set.Name, set.Units, nil
	}
	for _, u := range set.Units {
		if strings.EqualFold(u.Name, unitName) {
			return u.Name, []Unit{u}, nil
		}
	}
	return "", nil, fmt.Errorf("unit %q not found in set %q", unitName, set.Name)
}
