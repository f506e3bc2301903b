package intel

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/gafferbot/gaffer/internal/models"
)

// IntelligenceSource supplies raw signals observed since a cutoff. Sources
// are polled concurrently and are allowed to fail; a failed source demotes
// to a warning, it never blocks the sweep.
type IntelligenceSource interface {
	Name() string
	Poll(ctx context.Context, since time.Time) ([]models.RawSignal, error)
}

// FileSource reads raw signals from a JSON file, the drop-box format used
// for manually curated press-conference notes and lineup leaks.
type FileSource struct {
	name string
	path string
}

func NewFileSource(name, path string) *FileSource {
	return &FileSource{name: name, path: path}
}

func (f *FileSource) Name() string { return f.name }

// Poll loads the whole file and returns the signals newer than the cutoff.
func (f *FileSource) Poll(ctx context.Context, since time.Time) ([]models.RawSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading signal file %s: %w", f.path, err)
	}

	var raws []models.RawSignal
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decoding signal file %s: %w", f.path, err)
	}

	fresh := raws[:0]
	for _, raw := range raws {
		if raw.ObservedAt.After(since) {
			if raw.SourceID == "" {
				raw.SourceID = f.name
			}
			fresh = append(fresh, raw)
		}
	}
	return fresh, nil
}

// SortSignals orders classified signals deterministically: by timestamp,
// then source, then player name. Merged multi-source sweeps always come out
// in the same order regardless of poll completion order.
func SortSignals(signals []*models.IntelligenceSignal) {
	sort.SliceStable(signals, func(i, j int) bool {
		a, b := signals[i], signals[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.PlayerName < b.PlayerName
	})
}
