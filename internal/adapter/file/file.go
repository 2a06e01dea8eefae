// Package file reads source rows from and writes canonical entities to
// newline-delimited JSON files for local builds.
package file

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/couchcryptid/facility-lead-etl/internal/domain"
)

const maxLineBytes = 4 << 20

// Extractor reads one NDJSON file per source. Sources without a path
// yield no events. It implements pipeline.SourceExtractor.
type Extractor struct {
	paths map[domain.Source]string
}

// NewExtractor creates an Extractor over the given per-source paths.
func NewExtractor(paths map[domain.Source]string) *Extractor {
	return &Extractor{paths: paths}
}

func (e *Extractor) ExtractSource(ctx context.Context, src domain.Source) ([]domain.RawEvent, error) {
	path := e.paths[src]
	if path == "" {
		return nil, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s input: %w", src, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64<<10), maxLineBytes)

	var events []domain.RawEvent
	var line int64
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value := bytes.TrimSpace(scanner.Bytes())
		if len(value) == 0 {
			continue
		}
		events = append(events, domain.RawEvent{
			Value:  bytes.Clone(value),
			Topic:  path,
			Offset: line,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s line %d: %w", path, line+1, err)
	}
	return events, nil
}

// Writer writes each build's entities to one NDJSON file, replacing its
// previous contents. It implements pipeline.EntityLoader.
type Writer struct {
	path string
}

// NewWriter creates a Writer targeting path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Name() string { return "file" }

func (w *Writer) LoadEntities(_ context.Context, _ domain.BuildInfo, entities []domain.CanonicalEntity) error {
	f, err := os.Create(w.path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	buf := bufio.NewWriter(f)
	enc := json.NewEncoder(buf)
	for i := range entities {
		if err := enc.Encode(entities[i]); err != nil {
			f.Close() //nolint:errcheck // already failing
			return fmt.Errorf("encode entity %s: %w", entities[i].ID, err)
		}
	}
	if err := buf.Flush(); err != nil {
		f.Close() //nolint:errcheck // already failing
		return fmt.Errorf("flush output: %w", err)
	}
	return f.Close()
}
