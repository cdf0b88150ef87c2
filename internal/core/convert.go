package core

// convert.go runs a batch of uploaded files through the conversion pipeline.
//
// Files are processed one at a time in upload order. Each file runs inside
// its own recover boundary and yields a FileOutcome; a failure in one file
// never stops the next. When at least two files convert, their workbooks
// are also bundled into one zip.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/csvxlsx/internal/logging"
)

// DefaultMaxFileSize is the per-file upload limit (5 MiB).
const DefaultMaxFileSize = 5 << 20

// minArchiveFiles is how many converted files it takes to offer a bundle.
const minArchiveFiles = 2

// Options configures a Converter. Zero values select the defaults.
type Options struct {
	MaxFileSize int64
	SniffSize   int
	Encoding    string
	PreviewRows int
	Now         func() time.Time
}

func (o Options) withDefaults() Options {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.SniffSize <= 0 {
		o.SniffSize = DefaultSniffSize
	}
	if o.Encoding == "" {
		o.Encoding = DefaultEncoding
	}
	if o.PreviewRows <= 0 {
		o.PreviewRows = DefaultPreviewRows
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Recorder persists batch metadata. Implementations must not retain file
// contents.
type Recorder interface {
	RecordBatch(ctx context.Context, b *BatchResult) error
}

// Observer is notified of every finished batch.
type Observer interface {
	ObserveBatch(b *BatchResult)
}

// Converter converts batches of uploaded files. It is safe for concurrent
// use; all per-batch state lives in ConvertBatch.
type Converter struct {
	opts     Options
	recorder Recorder
	observer Observer
}

// ConverterOption customizes a Converter.
type ConverterOption func(*Converter)

// WithRecorder records every batch through r.
func WithRecorder(r Recorder) ConverterOption {
	return func(c *Converter) { c.recorder = r }
}

// WithObserver reports every batch to o.
func WithObserver(o Observer) ConverterOption {
	return func(c *Converter) { c.observer = o }
}

// NewConverter returns a Converter using opts.
func NewConverter(opts Options, options ...ConverterOption) *Converter {
	c := &Converter{opts: opts.withDefaults()}
	for _, o := range options {
		o(c)
	}
	return c
}

// Options returns the effective options.
func (c *Converter) Options() Options {
	return c.opts
}

// ConvertBatch converts files in order. The returned error is non-nil only
// when ctx ends before every file was attempted; the partial result is
// still returned.
func (c *Converter) ConvertBatch(ctx context.Context, files []UploadedFile) (*BatchResult, error) {
	started := time.Now()
	ts := c.opts.Now()

	batch := &BatchResult{
		ID:        uuid.New(),
		StartedAt: ts,
		Files:     make([]FileOutcome, 0, len(files)),
	}
	ctx, log := logging.WithFields(ctx, "batch_id", batch.ID.String())
	namer := NewNamer(ts)

	var ctxErr error
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			log.Warn("batch interrupted", "remaining", len(files)-i, "error", err)
			break
		}
		out := c.convertFile(log, i, f, namer)
		logOutcome(log, out)
		batch.Files = append(batch.Files, out)
	}

	c.packageBatch(log, batch, ts)
	batch.Duration = time.Since(started)

	if c.observer != nil {
		c.observer.ObserveBatch(batch)
	}
	if c.recorder != nil {
		if err := c.recorder.RecordBatch(context.WithoutCancel(ctx), batch); err != nil {
			log.Error("failed to record batch", "error", err)
		}
	}

	log.Info("batch finished",
		"files", len(batch.Files),
		"converted", len(batch.Converted()),
		"skipped", len(batch.Skipped()),
		"failed", len(batch.Failed()),
		"archive", batch.Archive != nil,
		"duration_ms", batch.Duration.Milliseconds(),
	)
	return batch, ctxErr
}

// ConvertFile converts a single file outside of a batch.
func (c *Converter) ConvertFile(f UploadedFile) FileOutcome {
	return c.convertFile(slog.Default(), 0, f, NewNamer(c.opts.Now()))
}

func (c *Converter) convertFile(log *slog.Logger, index int, f UploadedFile, namer *Namer) (out FileOutcome) {
	out = FileOutcome{Index: index, Name: f.Name, Size: f.Size}
	if out.Size == 0 {
		out.Size = int64(len(f.Data))
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic converting file", "file", f.Name, "panic", r)
			out.Status = StatusFailed
			out.Result = nil
			out.Err = newFileError(KindEncode, f.Name, fmt.Errorf("internal error: %v", r))
		}
	}()

	fail := func(kind ErrorKind, err error) FileOutcome {
		out.Err = newFileError(kind, f.Name, err)
		out.Status = StatusFailed
		if kind.IsWarning() {
			out.Status = StatusSkipped
		}
		return out
	}

	if out.Size > c.opts.MaxFileSize {
		return fail(KindSizeLimitExceeded,
			fmt.Errorf("file is %d bytes, limit is %d", out.Size, c.opts.MaxFileSize))
	}

	out.Delimiter = detectDelimiter(f.Data, c.opts.SniffSize)

	table, err := ParseTable(f.Data, out.Delimiter, c.opts.Encoding)
	if err != nil {
		return fail(KindParse, err)
	}

	out.Summary = Summarize(table)
	out.Preview = Preview(table, c.opts.PreviewRows)
	if out.Summary.RowCount == 0 {
		return fail(KindEmptyTable, fmt.Errorf("header row only, no data rows"))
	}

	data, err := EncodeXLSX(table)
	if err != nil {
		return fail(KindEncode, err)
	}

	out.Status = StatusConverted
	out.Result = &ConversionResult{
		FileName: namer.Next(f.Name),
		Data:     data,
		MimeType: MimeXLSX,
	}
	return out
}

func (c *Converter) packageBatch(log *slog.Logger, batch *BatchResult, ts time.Time) {
	converted := batch.Converted()
	if len(converted) < minArchiveFiles {
		return
	}

	entries := make([]ArchiveEntry, 0, len(converted))
	for _, o := range converted {
		entries = append(entries, ArchiveEntry{Name: o.Result.FileName, Data: o.Result.Data})
	}

	name := ArchiveName(ts)
	data, err := PackageArchive(entries, ts)
	if err != nil {
		batch.ArchiveErr = newFileError(KindPackage, name, err)
		log.Error("failed to build archive", "archive", name, "error", err)
		return
	}
	batch.Archive = &ConversionResult{FileName: name, Data: data, MimeType: MimeZIP}
}

func logOutcome(log *slog.Logger, o FileOutcome) {
	attrs := []any{"file", o.Name, "size", o.Size, "status", string(o.Status)}
	switch o.Status {
	case StatusConverted:
		log.Info("file converted", append(attrs,
			"output", o.Result.FileName,
			"rows", o.Summary.RowCount,
			"columns", o.Summary.ColumnCount,
			"delimiter", o.DelimiterName(),
		)...)
	case StatusSkipped:
		log.Warn("file skipped", append(attrs, "kind", o.Err.Kind.String(), "reason", o.Err.Detail())...)
	default:
		log.Error("file failed", append(attrs, "kind", o.Err.Kind.String(), "error", o.Err.Detail())...)
	}
}
