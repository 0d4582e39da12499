// Package report writes run reports to disk and renders them for the terminal.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/devicelab-dev/actionrunner/pkg/core"
)

// Layout of a run directory:
//
//	<output>/<run-id>/report.json
//	<output>/<run-id>/snapshots/action-001.xml
const (
	reportFile   = "report.json"
	snapshotsDir = "snapshots"
)

// Write stores r under outputDir/<run-id> and returns the run directory.
// Captured UI trees are also written as standalone XML files.
func Write(outputDir string, r *core.RunReport) (string, error) {
	runDir := filepath.Join(outputDir, r.ID)
	if err := ensureDir(runDir); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}

	for _, res := range r.Results {
		if res.Snapshot == "" {
			continue
		}
		dir := filepath.Join(runDir, snapshotsDir)
		if err := ensureDir(dir); err != nil {
			return "", fmt.Errorf("create snapshots dir: %w", err)
		}
		name := SnapshotPath(res.Index)
		if err := atomicWrite(filepath.Join(runDir, name), []byte(res.Snapshot)); err != nil {
			return "", fmt.Errorf("write snapshot %s: %w", name, err)
		}
	}

	if err := atomicWriteJSON(filepath.Join(runDir, reportFile), r); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return runDir, nil
}

// SnapshotPath returns the snapshot file of the action at index, relative to the run directory.
func SnapshotPath(index int) string {
	return filepath.Join(snapshotsDir, fmt.Sprintf("action-%03d.xml", index+1))
}

// Read loads a report written by Write. path may be the run directory or the JSON file.
func Read(path string) (*core.RunReport, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, reportFile)
	}
	data, err := os.ReadFile(path) //#nosec G304 -- report path from CLI
	if err != nil {
		return nil, err
	}
	var r core.RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &r, nil
}

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

func atomicWriteJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(path, data)
}

// atomicWrite writes via a temp file and rename so readers never see a partial file.
func atomicWrite(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
