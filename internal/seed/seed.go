// Package seed loads the five CSV datasets into Postgres. Files can come
// from a local directory or an S3-compatible bucket; either way the same
// header aliasing and value coercion applies.
package seed

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/reviewlens/reviewlens/internal/storage"
)

const batchSize = 1000

const csvContentType = "text/csv"

// Source lists the dataset files that exist and opens them by name.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context) ([]string, error)
}

// ErrDatasetMissing marks a file that simply is not there; the loader
// skips it instead of failing the run.
var ErrDatasetMissing = errors.New("dataset file missing")

// DirSource reads dataset files from a local directory.
type DirSource struct {
	Dir string
}

func (s DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	file, err := os.Open(filepath.Join(s.Dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrDatasetMissing
	}
	return file, err
}

// List returns the CSV files in the directory. A missing directory means
// there is nothing to load, not a failure.
func (s DirSource) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

// StoreSource reads dataset files from an object store.
type StoreSource struct {
	Store storage.DatasetStore
}

func (s StoreSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	reader, err := s.Store.Get(ctx, name)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, ErrDatasetMissing
	}
	return reader, err
}

// List returns the CSV object keys in the store.
func (s StoreSource) List(ctx context.Context) ([]string, error) {
	infos, err := s.Store.List(ctx, "")
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	var names []string
	for _, info := range infos {
		if !strings.EqualFold(filepath.Ext(info.Key), ".csv") {
			continue
		}
		names = append(names, info.Key)
	}
	return names, nil
}

// UploadDir pushes every CSV file in dir into the object store so later
// runs can seed from the bucket. It returns what was uploaded.
func UploadDir(ctx context.Context, store storage.DatasetStore, dir string) ([]storage.ObjectInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}
	var uploaded []storage.ObjectInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		info, err := uploadFile(ctx, store, dir, entry.Name())
		if err != nil {
			return uploaded, err
		}
		uploaded = append(uploaded, info)
	}
	return uploaded, nil
}

func uploadFile(ctx context.Context, store storage.DatasetStore, dir, name string) (storage.ObjectInfo, error) {
	file, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = file.Close() }()

	stat, err := file.Stat()
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("stat %s: %w", name, err)
	}
	info, err := store.Put(ctx, name, file, stat.Size(), csvContentType)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload %s: %w", name, err)
	}
	return info, nil
}

type Loader struct {
	db     *sql.DB
	source Source
	logger *slog.Logger
	now    func() time.Time
}

func NewLoader(db *sql.DB, source Source, logger *slog.Logger) *Loader {
	return &Loader{db: db, source: source, logger: logger, now: time.Now}
}

// Summary reports what one run actually loaded.
type Summary struct {
	Loaded  map[string]int
	Skipped []string
}

// Run discovers the files the source actually has, then imports every
// known dataset in order. A dataset without a file is logged and skipped;
// a malformed file or database failure stops the run.
func (l *Loader) Run(ctx context.Context) (Summary, error) {
	summary := Summary{Loaded: map[string]int{}}

	names, err := l.source.List(ctx)
	if err != nil {
		return summary, fmt.Errorf("discover datasets: %w", err)
	}
	available := make(map[string]bool, len(names))
	for _, name := range names {
		available[name] = true
	}

	known := map[string]bool{}
	for _, dataset := range datasets(l.now) {
		known[dataset.File] = true
		if !available[dataset.File] {
			l.logger.Info("dataset file missing, skipping", "file", dataset.File)
			summary.Skipped = append(summary.Skipped, dataset.File)
			continue
		}
		rows, err := l.load(ctx, dataset)
		if errors.Is(err, ErrDatasetMissing) {
			l.logger.Info("dataset file missing, skipping", "file", dataset.File)
			summary.Skipped = append(summary.Skipped, dataset.File)
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("load %s: %w", dataset.File, err)
		}
		l.logger.Info("dataset loaded", "table", dataset.Table, "rows", rows)
		summary.Loaded[dataset.Table] = rows
	}

	for _, name := range names {
		if !known[name] {
			l.logger.Warn("unrecognized dataset file ignored", "file", name)
		}
	}
	return summary, nil
}

func (l *Loader) load(ctx context.Context, dataset Dataset) (int, error) {
	body, err := l.source.Open(ctx, dataset.File)
	if err != nil {
		return 0, err
	}
	defer func() { _ = body.Close() }()

	reader := csv.NewReader(body)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err == io.EOF {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}

	total := 0
	batch := make([][]any, 0, batchSize)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return total, fmt.Errorf("read row: %w", err)
		}

		get := fieldGetter(columns, record)
		values, ok := dataset.MapRow(get)
		if !ok {
			continue
		}
		batch = append(batch, values)

		if len(batch) >= batchSize {
			if err := l.insertBatch(ctx, dataset.Insert, batch); err != nil {
				return total, err
			}
			total += len(batch)
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := l.insertBatch(ctx, dataset.Insert, batch); err != nil {
			return total, err
		}
		total += len(batch)
	}
	return total, nil
}

// insertBatch writes one batch in a single transaction through a prepared
// statement, mirroring the batched executemany the dataset sizes call for.
func (l *Loader) insertBatch(ctx context.Context, insert string, batch [][]any) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, values := range batch {
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}
	return tx.Commit()
}

// fieldGetter resolves a value by trying column name variants in order,
// returning the first non-empty match.
func fieldGetter(columns map[string]int, record []string) FieldGetter {
	return func(names ...string) string {
		for _, name := range names {
			idx, ok := columns[name]
			if !ok || idx >= len(record) {
				continue
			}
			if value := record[idx]; value != "" {
				return value
			}
		}
		return ""
	}
}
