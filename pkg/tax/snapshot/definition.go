package snapshot

import (
	"fmt"
	"io"
	"os"
	"time"

	"corp-tax-agent-be/internal/entity"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// Definition is the on-disk YAML form of a snapshot, as shipped under
// configs/snapshots.
type Definition struct {
	Version       string             `yaml:"version"`
	Formula       string             `yaml:"formula"`
	Description   string             `yaml:"description"`
	EffectiveFrom string             `yaml:"effective_from"`
	EffectiveTo   string             `yaml:"effective_to,omitempty"`
	Parameters    []entity.Parameter `yaml:"parameters"`
}

func ParseDefinition(r io.Reader) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode snapshot definition: %w", err)
	}
	return &def, nil
}

func ReadDefinitionFile(path string) (*Definition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseDefinition(f)
}

func (d *Definition) ToEntity() (*entity.ParameterSnapshot, error) {
	from, err := time.ParseInLocation(dateLayout, d.EffectiveFrom, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("effective_from: %w", err)
	}
	snap := &entity.ParameterSnapshot{
		Version:       d.Version,
		Formula:       d.Formula,
		Description:   d.Description,
		EffectiveFrom: from,
		Parameters:    append([]entity.Parameter(nil), d.Parameters...),
	}
	if d.EffectiveTo != "" {
		to, err := time.ParseInLocation(dateLayout, d.EffectiveTo, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("effective_to: %w", err)
		}
		snap.EffectiveTo = &to
	}
	return snap, nil
}

// FromEntity is the inverse of ToEntity, used by `taxctl snapshot list -o yaml`.
func FromEntity(s *entity.ParameterSnapshot) *Definition {
	d := &Definition{
		Version:       s.Version,
		Formula:       s.Formula,
		Description:   s.Description,
		EffectiveFrom: s.EffectiveFrom.UTC().Format(dateLayout),
		Parameters:    append([]entity.Parameter(nil), s.Parameters...),
	}
	if s.EffectiveTo != nil {
		d.EffectiveTo = s.EffectiveTo.UTC().Format(dateLayout)
	}
	return d
}
