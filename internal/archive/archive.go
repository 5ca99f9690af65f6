// Package archive appends transcription results to day-bucketed
// JSON-Lines files.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fankserver/voicepipe/internal/transcribe"
)

// Archiver appends transcript records under a root directory, one file per
// local day: <root>/YYYY/MM/DD.jsonl.
type Archiver struct {
	Root string
}

// New returns an Archiver rooted at dir.
func New(dir string) *Archiver {
	return &Archiver{Root: dir}
}

// Record is one archived line.
type Record struct {
	Timestamp time.Time         `json:"timestamp"`
	Device    string            `json:"device"`
	Result    transcribe.Result `json:"result"`
}

// Append writes one JSON-Lines record for result, timestamped at t (local
// time determines the file path). The file is opened in append mode and
// closed immediately; no handle is held between calls.
func (a *Archiver) Append(device string, result transcribe.Result, t time.Time) error {
	t = t.Local()
	dir := filepath.Join(a.Root, fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", t.Month()))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("archive: create dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%02d.jsonl", t.Day()))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("archive: open %s: %w", path, err)
	}
	defer f.Close()

	rec := Record{Timestamp: t, Device: device, Result: result}
	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("archive: write %s: %w", path, err)
	}
	return nil
}

// LatestPath returns the most recent day's archive path that exists under
// root, or an empty string if none exists.
func (a *Archiver) LatestPath() (string, error) {
	var latest string
	err := filepath.WalkDir(a.Root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".jsonl" {
			return nil
		}
		if path > latest {
			latest = path
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("archive: walk %s: %w", a.Root, err)
	}
	return latest, nil
}
