package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testWorkload = `
threads:
  - name: rt
    priority: 120
    program: ["cpu 10"]
  - name: rr
    priority: 10
    program: ["cpu 5", "sleep 5", "cpu 5"]
`

func writeWorkload(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "workload.yml")
	if err := os.WriteFile(path, []byte(testWorkload), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(ctx context.Context, args ...string) (string, error) {
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func TestRunWritesReportAndCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "trace.csv")

	out, err := execute(context.Background(), "run",
		"--config", filepath.Join(dir, "missing.yml"),
		"--workload", writeWorkload(t),
		"--csv", csvPath,
		"--log-level", "error",
		"--trace",
		"--print-queues",
	)
	if err != nil {
		t.Fatalf("run error: %v\n%s", err, out)
	}
	for _, want := range []string{"Ready list contents at tick 0:", "[E] Tick:", "finished at tick 25", "rt", "rr"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if len(rows) < 2 {
		t.Fatalf("trace has %d rows", len(rows))
	}
	if rows[0][0] != "run_id" {
		t.Fatalf("header = %v", rows[0])
	}
	finishes := 0
	for _, r := range rows[1:] {
		if r[2] == "Finish" {
			finishes++
		}
	}
	if finishes != 2 {
		t.Fatalf("trace has %d Finish rows, want 2", finishes)
	}
}

func TestRunCancelledIsNotAnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := execute(ctx, "run", "--workload", writeWorkload(t), "--config", "", "--log-level", "error")
	if err != nil {
		t.Fatalf("cancelled run error: %v", err)
	}
	if !strings.Contains(out, "finished at tick 0") {
		t.Fatalf("report missing:\n%s", out)
	}
}

func TestRunRejectsBadLogLevel(t *testing.T) {
	_, err := execute(context.Background(), "run", "--workload", writeWorkload(t), "--log-level", "loud")
	if err == nil || !strings.Contains(err.Error(), "log level") {
		t.Fatalf("error = %v, want a log level error", err)
	}
}

func TestRunMissingWorkload(t *testing.T) {
	_, err := execute(context.Background(), "run", "--workload", filepath.Join(t.TempDir(), "none.yml"), "--log-level", "error")
	if err == nil || !strings.Contains(err.Error(), "read workload") {
		t.Fatalf("error = %v, want a read error", err)
	}
}

func TestConfigPrintsDefaults(t *testing.T) {
	out, err := execute(context.Background(), "config", "--config", "")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "AgingThreshold:1500") || !strings.Contains(out, "SliceTicks:100") {
		t.Fatalf("config output = %q", out)
	}
}
