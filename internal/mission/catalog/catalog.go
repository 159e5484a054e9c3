// Package catalog loads externally authored mission definitions from YAML
// files. Each document is validated against an embedded JSON Schema before
// it is converted to the domain model, so authoring mistakes surface with a
// precise schema error instead of a half-loaded mission.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	apperrors "github.com/tacticalworks/missiond/internal/errors"
	"github.com/tacticalworks/missiond/internal/mission/domain"
)

//go:embed schema.json
var schemaFS embed.FS

var missionSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	raw, err := schemaFS.ReadFile("schema.json")
	if err != nil {
		panic(fmt.Sprintf("catalog: read embedded schema: %v", err))
	}
	schema, err := jsonschema.CompileString("mission.schema.json", string(raw))
	if err != nil {
		panic(fmt.Sprintf("catalog: compile mission schema: %v", err))
	}
	return schema
}

// Documents use plain seconds for durations so mission authors never deal
// with nanosecond integers.
type missionDoc struct {
	MissionID                string         `yaml:"mission_id"`
	MissionName              string         `yaml:"mission_name"`
	Description              string         `yaml:"description"`
	EnvironmentID            string         `yaml:"environment_id"`
	ClientID                 string         `yaml:"client_id"`
	Difficulty               string         `yaml:"difficulty"`
	BaseReward               float64        `yaml:"base_reward"`
	TimeLimitSeconds         float64        `yaml:"time_limit_seconds"`
	EstimatedDurationSeconds float64        `yaml:"estimated_duration_seconds"`
	Objectives               []objectiveDoc `yaml:"objectives"`
}

type objectiveDoc struct {
	ObjectiveID      string            `yaml:"objective_id"`
	Description      string            `yaml:"description"`
	Type             string            `yaml:"type"`
	TargetPosition   positionDoc       `yaml:"target_position"`
	CompletionRadius float64           `yaml:"completion_radius"`
	TimeLimitSeconds float64           `yaml:"time_limit_seconds"`
	Reward           float64           `yaml:"reward"`
	Params           map[string]string `yaml:"params"`
}

type positionDoc struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	Z float64 `yaml:"z"`
}

// Parse decodes and validates one YAML mission document.
func Parse(data []byte) (domain.Mission, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Mission{}, apperrors.Wrap(apperrors.CodeCatalogInvalidDocument,
			"decode mission document", err)
	}
	if err := validateAgainstSchema(raw); err != nil {
		return domain.Mission{}, err
	}

	var doc missionDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.Mission{}, apperrors.Wrap(apperrors.CodeCatalogInvalidDocument,
			"decode mission document", err)
	}

	mission := doc.toMission()
	if err := mission.Validate(); err != nil {
		return domain.Mission{}, err
	}
	return mission, nil
}

// validateAgainstSchema round-trips the decoded YAML through JSON so the
// schema validator sees the value shapes it expects.
func validateAgainstSchema(raw any) error {
	buf, err := json.Marshal(raw)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeCatalogInvalidDocument,
			"mission document is not schema-representable", err)
	}
	var jsonValue any
	if err := json.Unmarshal(buf, &jsonValue); err != nil {
		return apperrors.Wrap(apperrors.CodeCatalogInvalidDocument,
			"mission document is not schema-representable", err)
	}
	if err := missionSchema.Validate(jsonValue); err != nil {
		return apperrors.Wrap(apperrors.CodeCatalogInvalidDocument,
			"mission document failed schema validation", err)
	}
	return nil
}

func (d missionDoc) toMission() domain.Mission {
	objectives := make([]domain.Objective, 0, len(d.Objectives))
	for _, obj := range d.Objectives {
		objectives = append(objectives, domain.Objective{
			ID:               obj.ObjectiveID,
			Description:      obj.Description,
			Type:             domain.ObjectiveType(obj.Type),
			TargetPosition:   domain.Vec3{X: obj.TargetPosition.X, Y: obj.TargetPosition.Y, Z: obj.TargetPosition.Z},
			CompletionRadius: obj.CompletionRadius,
			TimeLimit:        secondsToDuration(obj.TimeLimitSeconds),
			Reward:           obj.Reward,
			Params:           obj.Params,
		})
	}
	return domain.Mission{
		ID:                d.MissionID,
		Name:              d.MissionName,
		Description:       d.Description,
		EnvironmentID:     d.EnvironmentID,
		ClientID:          d.ClientID,
		Difficulty:        domain.Difficulty(d.Difficulty),
		BaseReward:        d.BaseReward,
		TimeLimit:         secondsToDuration(d.TimeLimitSeconds),
		EstimatedDuration: secondsToDuration(d.EstimatedDurationSeconds),
		Objectives:        objectives,
	}
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// LoadDir loads every .yaml/.yml mission file in dir, sorted by filename.
// Duplicate mission IDs across files are rejected.
func LoadDir(dir string) ([]domain.Mission, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read mission catalog %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	missions := make([]domain.Mission, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, name := range files {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read mission file %s: %w", path, err)
		}
		mission, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("mission file %s: %w", name, err)
		}
		if prev, dup := seen[mission.ID]; dup {
			return nil, apperrors.WithMetadata(apperrors.CodeCatalogInvalidDocument,
				"duplicate mission id across catalog files",
				map[string]string{"mission_id": mission.ID, "file": name, "conflicts_with": prev})
		}
		seen[mission.ID] = name
		missions = append(missions, mission)
	}
	return missions, nil
}
