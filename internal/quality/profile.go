// Package quality implements the response quality gate: a rubric-driven
// scorer for LLM-generated forecasts plus an iterative improve-and-rescore
// refinement loop.
//
// A scoring profile declares the section headings a generated answer must
// contain, per-section presence/quality point values, bonus heuristics, and
// global rules shared by every profile. Profiles are loaded from the embedded
// scoring.yaml and are immutable after load.
package quality

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	apperrors "github.com/astrorabbit/astro-bot/internal/core/errors"
)

//go:embed scoring.yaml
var scoringYAML []byte

// SectionRule declares one expected section: the exact heading line and the
// points awarded for presence and for meeting the word-count minimum.
type SectionRule struct {
	Title    string  `yaml:"title"`
	Presence float64 `yaml:"presence"`
	Quality  float64 `yaml:"quality"`
}

// GlobalRule is a cross-cutting rule applied to every profile.
type GlobalRule struct {
	Points   float64 `yaml:"points"`
	Critical bool    `yaml:"critical"`
}

// Profile is a named rubric for one category of generated content.
type Profile struct {
	Name               string
	Sections           []SectionRule
	MinWordsPerSection int
	Extra              map[string]float64
	Global             map[string]GlobalRule
}

// SectionTitles returns the declared heading lines in rubric order.
func (p *Profile) SectionTitles() []string {
	titles := make([]string, len(p.Sections))
	for i, s := range p.Sections {
		titles[i] = s.Title
	}

	return titles
}

type profileConfig struct {
	MinWordsPerSection int                `yaml:"min_words_per_section"`
	Sections           []SectionRule      `yaml:"sections"`
	Extra              map[string]float64 `yaml:"extra"`
}

type scoringConfig struct {
	Global   map[string]GlobalRule    `yaml:"global"`
	Profiles map[string]profileConfig `yaml:"profiles"`
}

var (
	loadOnce  sync.Once
	loadedCfg *scoringConfig
	loadedErr error
)

func loadConfig() (*scoringConfig, error) {
	loadOnce.Do(func() {
		cfg := &scoringConfig{}
		if err := yaml.Unmarshal(scoringYAML, cfg); err != nil {
			loadedErr = fmt.Errorf("parse scoring config: %w", err)

			return
		}

		loadedCfg = cfg
	})

	return loadedCfg, loadedErr
}

// LoadProfile resolves a scoring profile by name, merging in the shared
// global rules. Unknown names return ErrProfileNotFound; this is a
// configuration defect and callers must not retry.
func LoadProfile(name string) (*Profile, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	prof, ok := cfg.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrProfileNotFound, name)
	}

	return &Profile{
		Name:               name,
		Sections:           prof.Sections,
		MinWordsPerSection: prof.MinWordsPerSection,
		Extra:              prof.Extra,
		Global:             cfg.Global,
	}, nil
}
