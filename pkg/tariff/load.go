package tariff

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load decodes a YAML tariff document on top of the default schedule, so a
// file only needs the tables it overrides. The merged schedule is validated.
func Load(r io.Reader) (Schedule, error) {
	schedule := Default()
	data, err := io.ReadAll(r)
	if err != nil {
		return Schedule{}, fmt.Errorf("failed to read tariff data: %w", err)
	}
	if err := yaml.Unmarshal(data, &schedule); err != nil {
		return Schedule{}, fmt.Errorf("failed to parse tariff data: %w", err)
	}
	if err := schedule.Validate(); err != nil {
		return Schedule{}, err
	}
	return schedule, nil
}

// LoadFile reads a tariff override file. An empty path yields the default
// schedule.
func LoadFile(path string) (Schedule, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Schedule{}, fmt.Errorf("failed to open tariff file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Load(f)
}
