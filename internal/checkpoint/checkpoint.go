// Package checkpoint reads and writes the trainer's checkpoint tag file.
// The external trainer drops weight snapshots into OUTPUT_DIR and records
// the most recent one in a small tag file; the harness only ever touches the
// tag file, never the snapshots themselves. The tag is how auto-resume works
// across interrupted runs.
package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TagFile is the filename the trainer uses to record its latest snapshot.
const TagFile = "last_checkpoint"

// Tracker handles the tag file for one output directory.
type Tracker struct {
	dir string
}

// New returns a Tracker for the given output directory.
func New(dir string) *Tracker {
	return &Tracker{dir: dir}
}

// Has reports whether the directory carries a checkpoint tag.
func (t *Tracker) Has() bool {
	_, err := os.Stat(filepath.Join(t.dir, TagFile))
	return err == nil
}

// Last returns the path of the most recent checkpoint, resolving relative
// entries against the output directory. A missing tag file is not an error;
// it returns the empty string, meaning "train from scratch".
func (t *Tracker) Last() (string, error) {
	raw, err := os.ReadFile(filepath.Join(t.dir, TagFile))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read checkpoint tag: %w", err)
	}
	last := strings.TrimSpace(string(raw))
	if last == "" {
		return "", nil
	}
	if !filepath.IsAbs(last) {
		last = filepath.Join(t.dir, last)
	}
	return last, nil
}

// Tag records a checkpoint as the most recent one. Paths inside the output
// directory are stored as bare basenames so the directory stays relocatable.
func (t *Tracker) Tag(checkpointPath string) error {
	entry := checkpointPath
	if !filepath.IsAbs(entry) {
		entry = filepath.Base(entry)
	}
	if err := os.WriteFile(filepath.Join(t.dir, TagFile), []byte(entry), 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint tag: %w", err)
	}
	return nil
}
