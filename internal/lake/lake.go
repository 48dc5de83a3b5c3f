// Package lake lands raw and processed batch snapshots on a partitioned
// local data-lake directory, the local analogue of an object storage
// bucket. Layout: <root>/{raw|processed}/gfn/YYYY/MM/DD/<file>.json.
package lake

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Lake writes batch snapshots under a root directory.
type Lake struct {
	root string
}

// New creates a Lake rooted at dir.
func New(dir string) *Lake {
	return &Lake{root: dir}
}

// WriteRaw snapshots an extracted batch and returns the file path.
func (l *Lake) WriteRaw(v any, at time.Time) (string, error) {
	return l.write("raw", v, at, "")
}

// WriteProcessed snapshots a transformed batch and returns the file path.
func (l *Lake) WriteProcessed(v any, at time.Time) (string, error) {
	return l.write("processed", v, at, "_processed")
}

func (l *Lake) write(layer string, v any, at time.Time, suffix string) (string, error) {
	dir := filepath.Join(l.root, layer, "gfn", at.Format("2006"), at.Format("01"), at.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "lake: mkdir %s", dir)
	}

	name := fmt.Sprintf("gfn_data_%s%s.json", at.Format("20060102_150405"), suffix)
	path := filepath.Join(dir, name)

	data, err := json.Marshal(v)
	if err != nil {
		return "", eris.Wrap(err, "lake: marshal batch")
	}

	// Write-then-rename so a crash mid-write never leaves a torn snapshot
	// behind under the final name.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "lake: write %s", tmp)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", eris.Wrapf(err, "lake: rename %s", path)
	}

	zap.L().Info("landed batch snapshot",
		zap.String("layer", layer),
		zap.String("path", path),
		zap.Int("bytes", len(data)),
	)
	return path, nil
}
