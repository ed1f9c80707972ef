package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/nao1215/afscrawler/internal/model"
	"github.com/nao1215/afscrawler/internal/report"
)

// DefaultName is the dataset name used when none is configured.
const DefaultName = "properties"

// DefaultStore is the key-value store directory used for exports.
const DefaultStore = "results"

// ErrEmptyName is returned for a dataset without a name.
var ErrEmptyName = errors.New("dataset name is empty")

// RecordStore persists records as they are pushed.
type RecordStore interface {
	SaveProperty(ctx context.Context, rec model.PropertyRecord) error
}

// Dataset is an append-only, concurrency-safe list of property records.
type Dataset struct {
	name   string
	store  RecordStore
	logger *slog.Logger

	mu      sync.Mutex
	records []model.PropertyRecord
}

// Option configures a Dataset.
type Option func(*Dataset)

// WithRecordStore writes every pushed record through to store.
func WithRecordStore(store RecordStore) Option {
	return func(d *Dataset) {
		d.store = store
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dataset) {
		d.logger = logger
	}
}

// New creates an empty dataset.
func New(name string, opts ...Option) (*Dataset, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	d := &Dataset{
		name:   name,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Name returns the dataset name.
func (d *Dataset) Name() string {
	return d.name
}

// PushData appends rec. When a record store is configured the record is
// appended only after the store accepted it.
func (d *Dataset) PushData(ctx context.Context, rec model.PropertyRecord) error {
	if d.store != nil {
		if err := d.store.SaveProperty(ctx, rec); err != nil {
			return fmt.Errorf("persist property %s: %w", rec.PropertyID, err)
		}
	}

	d.mu.Lock()
	d.records = append(d.records, rec)
	d.mu.Unlock()

	d.logger.Debug("record pushed", "dataset", d.name, "property_id", rec.PropertyID.String())
	return nil
}

// Records returns a copy of the records in push order.
func (d *Dataset) Records() []model.PropertyRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]model.PropertyRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Count returns the number of records.
func (d *Dataset) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.records)
}

// ExportPath returns the file ExportJSON writes for dir and store.
func (d *Dataset) ExportPath(dir, store string) string {
	return filepath.Join(dir, store, d.name+".json")
}

// ExportJSON writes all records as one JSON array to
// <dir>/<store>/<name>.json and returns the written path.
func (d *Dataset) ExportJSON(dir, store string) (string, error) {
	return d.export(d.ExportPath(dir, store), func(f *os.File) report.Writer {
		return report.NewJSONWriter(f, report.WithPrettyPrint())
	})
}

// ExportMarkdown writes a Markdown summary to <dir>/<store>/<name>.md.
func (d *Dataset) ExportMarkdown(dir, store string) (string, error) {
	path := filepath.Join(dir, store, d.name+".md")
	return d.export(path, func(f *os.File) report.Writer {
		return report.NewMarkdownWriter(f)
	})
}

func (d *Dataset) export(path string, newWriter func(*os.File) report.Writer) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}

	if _, err := newWriter(f).Write(d.Records()); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}

	d.logger.Info("dataset exported", "dataset", d.name, "path", path, "records", d.Count())
	return path, nil
}
