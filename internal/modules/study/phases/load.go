package phases

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/studyflow-backend/internal/domain/study"
)

// overrideFile is the YAML override format. Omitted phases and fields keep their
// defaults:
//
//	phases:
//	  training:
//	    activities: [transcription]
//	    day_offsets: [1, 2, 3, 4]
//	  posttest3:
//	    min_offset: 120
type overrideFile struct {
	Phases map[string]phaseOverride `yaml:"phases"`
}

type phaseOverride struct {
	Activities []string `yaml:"activities"`
	MinOffset  *int     `yaml:"min_offset"`
	DayOffsets []int    `yaml:"day_offsets"`
}

// Load reads overrides from path. An empty path returns Default().
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read phase config %q: %w", path, err)
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("phase config %q: %w", path, err)
	}
	return cfg, nil
}

// Parse applies YAML overrides on top of Default().
func Parse(raw []byte) (*Config, error) {
	var file overrideFile
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	base := Default()
	defs := make([]Definition, 0, len(base.order))
	for _, p := range base.order {
		defs = append(defs, base.defs[p])
	}
	for name, ps := range file.Phases {
		phase, ok := study.ParsePhase(name)
		if !ok {
			return nil, fmt.Errorf("unknown phase %q", name)
		}
		idx := base.Rank(phase)
		def := defs[idx]
		if len(ps.Activities) > 0 {
			def.Activities = make([]study.ActivityType, 0, len(ps.Activities))
			for _, a := range ps.Activities {
				def.Activities = append(def.Activities, study.ActivityType(strings.ToLower(strings.TrimSpace(a))))
			}
		}
		if ps.MinOffset != nil {
			def.Offsets.Min = *ps.MinOffset
		}
		if len(ps.DayOffsets) > 0 {
			def.Offsets.PerDay = ps.DayOffsets
		}
		defs[idx] = def
	}
	return New(defs)
}
