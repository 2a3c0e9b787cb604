package job

import (
	"fmt"
	"os"
	"strings"

	yaml "github.com/goccy/go-yaml"
)

// ThreadSpec describes one thread of a workload.
type ThreadSpec struct {
	Name           string   `yaml:"name"`
	Priority       int      `yaml:"priority"`
	PredictedBurst float64  `yaml:"predicted_burst"` // initial estimate, 0 if unknown
	Steps          []string `yaml:"program"`

	Program Program `yaml:"-"`
}

// Workload mirrors workload.yml
type Workload struct {
	Threads []ThreadSpec `yaml:"threads"`
}

// LoadWorkload reads and validates a workload file.
func LoadWorkload(path string) (Workload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Workload{}, fmt.Errorf("read workload %s: %w", path, err)
	}
	w, err := ParseWorkload(data)
	if err != nil {
		return Workload{}, fmt.Errorf("workload %s: %w", path, err)
	}
	return w, nil
}

// ParseWorkload decodes YAML and parses every thread's program.
func ParseWorkload(data []byte) (Workload, error) {
	var w Workload
	if err := yaml.Unmarshal(data, &w); err != nil {
		return Workload{}, err
	}
	if len(w.Threads) == 0 {
		return Workload{}, fmt.Errorf("no threads defined")
	}

	for i := range w.Threads {
		ts := &w.Threads[i]
		ts.Name = strings.TrimSpace(ts.Name)
		if ts.Name == "" {
			ts.Name = fmt.Sprintf("t%d", i+1)
		}
		if ts.PredictedBurst < 0 {
			return Workload{}, fmt.Errorf("thread %s: negative predicted_burst", ts.Name)
		}
		prog, err := ParseProgram(ts.Steps)
		if err != nil {
			return Workload{}, fmt.Errorf("thread %s: %w", ts.Name, err)
		}
		if len(prog) == 0 {
			return Workload{}, fmt.Errorf("thread %s: empty program", ts.Name)
		}
		ts.Program = prog
	}
	return w, nil
}
