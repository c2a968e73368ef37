package feed

import (
	"context"
	"fmt"
	"os"
)

// FileSource reads the feed from a local JSON file.
type FileSource struct {
	path string
	opts Options
}

func NewFileSource(path string, opts Options) *FileSource {
	return &FileSource{path: path, opts: opts.withDefaults()}
}

func (s *FileSource) Fetch(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return Batch{}, fmt.Errorf("open feed file: %w", err)
	}
	defer f.Close()

	b, err := decode(f, s.opts.MaxBytes, s.opts.Clock.Now(), s.opts.Logger)
	if err != nil {
		return Batch{}, fmt.Errorf("read %s: %w", s.path, err)
	}
	s.opts.Logger.Info(map[string]any{"path": s.path, "records": len(b.Records), "skipped": b.Skipped}, "feed_read_done")
	return b, nil
}
