package conversation

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadFromFile reads a list of turns from a JSON or YAML file, so that a run can
// be seeded from a saved history.
func LoadFromFile(filename string) ([]Turn, error) {
	switch {
	case strings.HasSuffix(filename, ".json"):
		return loadFromJSONFile(filename)
	case strings.HasSuffix(filename, ".yaml"), strings.HasSuffix(filename, ".yml"):
		return loadFromYAMLFile(filename)
	default:
		return nil, errors.Errorf("unsupported history file format: %s", filename)
	}
}

func loadFromYAMLFile(filename string) ([]Turn, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	var turns []Turn
	if err := yaml.NewDecoder(f).Decode(&turns); err != nil {
		return nil, errors.Wrapf(err, "decode %s", filename)
	}
	return validateRoles(turns)
}

func loadFromJSONFile(filename string) ([]Turn, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	var turns []Turn
	if err := json.NewDecoder(f).Decode(&turns); err != nil {
		return nil, errors.Wrapf(err, "decode %s", filename)
	}
	return validateRoles(turns)
}

func validateRoles(turns []Turn) ([]Turn, error) {
	for i := range turns {
		r, err := ParseRole(string(turns[i].Role))
		if err != nil {
			return nil, errors.Wrapf(err, "turn %d", i)
		}
		turns[i].Role = r
	}
	return turns, nil
}
