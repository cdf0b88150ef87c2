// Command csvxlsx converts local CSV files to XLSX workbooks and prints a
// JSON summary on stdout.
//
//	csvxlsx [-out DIR] [-zip] [-encoding NAME] [-max-size N] FILE...
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/csvxlsx/internal/core"
	"github.com/JonMunkholm/csvxlsx/internal/logging"
)

type Output struct {
	Success     bool         `json:"success"`
	OutputFiles []string     `json:"output_files,omitempty"`
	Archive     string       `json:"archive,omitempty"`
	Files       []FileReport `json:"files,omitempty"`
	Error       string       `json:"error,omitempty"`
	Duration    string       `json:"duration"`
}

type FileReport struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Output  string `json:"output,omitempty"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Missing int    `json:"missing"`
	Error   string `json:"error,omitempty"`
}

type options struct {
	outDir   string
	zip      bool
	encoding string
	maxSize  int64
	logLevel string
	files    []string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("csvxlsx", flag.ContinueOnError)
	fs.StringVar(&o.outDir, "out", ".", "directory for the converted files")
	fs.BoolVar(&o.zip, "zip", false, "also write a zip of all converted files")
	fs.StringVar(&o.encoding, "encoding", core.DefaultEncoding, "text encoding of the input files")
	fs.Int64Var(&o.maxSize, "max-size", core.DefaultMaxFileSize, "per-file size limit in bytes")
	fs.StringVar(&o.logLevel, "log-level", "warn", "log level written to stderr")
	if err := fs.Parse(args); err != nil {
		return o, err
	}

	o.files = fs.Args()
	if len(o.files) == 0 {
		return o, errors.New("no input files")
	}
	if !core.ValidEncoding(o.encoding) {
		return o, fmt.Errorf("unknown encoding %q", o.encoding)
	}
	if o.maxSize <= 0 {
		return o, errors.New("-max-size must be positive")
	}
	return o, nil
}

func main() {
	start := time.Now()

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		emitJSON(Output{Error: fmt.Sprintf("configuration error: %v", err), Duration: time.Since(start).String()})
		os.Exit(2)
	}

	// stdout carries the JSON summary, so logs go to stderr.
	logger := logging.New(os.Stderr, opts.logLevel, "text")
	ctx := logging.NewContext(context.Background(), logger)

	out, err := run(ctx, opts)
	out.Duration = time.Since(start).String()
	if err != nil {
		out.Error = err.Error()
	}
	emitJSON(out)
	if !out.Success {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) (Output, error) {
	files, err := readInputs(opts.files, opts.maxSize)
	if err != nil {
		return Output{}, err
	}

	converter := core.NewConverter(core.Options{MaxFileSize: opts.maxSize, Encoding: opts.encoding})
	batch, err := converter.ConvertBatch(ctx, files)
	if err != nil {
		return Output{}, err
	}

	if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
		return Output{}, fmt.Errorf("create output directory: %w", err)
	}

	out := Output{Success: len(batch.Failed()) == 0 && len(batch.Converted()) > 0}
	for _, f := range batch.Files {
		report := FileReport{
			Name:    f.Name,
			Status:  string(f.Status),
			Rows:    f.Summary.RowCount,
			Columns: f.Summary.ColumnCount,
			Missing: f.Summary.MissingCount,
		}
		if f.Err != nil {
			report.Error = fmt.Sprintf("%s: %s", f.Err.Kind, f.Err.Detail())
		}
		if f.Result != nil {
			path, err := writeResult(opts.outDir, f.Result)
			if err != nil {
				return out, err
			}
			report.Output = path
			out.OutputFiles = append(out.OutputFiles, path)
		}
		out.Files = append(out.Files, report)
	}

	if opts.zip {
		switch {
		case batch.Archive != nil:
			path, err := writeResult(opts.outDir, batch.Archive)
			if err != nil {
				return out, err
			}
			out.Archive = path
		case batch.ArchiveErr != nil:
			out.Success = false
			return out, batch.ArchiveErr
		}
	}
	return out, nil
}

// readInputs loads each file, leaving Data empty for files over maxSize so
// the converter skips them without holding them in memory.
func readInputs(paths []string, maxSize int64) ([]core.UploadedFile, error) {
	files := make([]core.UploadedFile, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		f := core.UploadedFile{Name: filepath.Base(p), Size: info.Size()}
		if f.Size <= maxSize {
			if f.Data, err = os.ReadFile(p); err != nil {
				return nil, err
			}
		}
		files = append(files, f)
	}
	return files, nil
}

func writeResult(dir string, res *core.ConversionResult) (string, error) {
	path := filepath.Join(dir, res.FileName)
	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", res.FileName, err)
	}
	return path, nil
}

func emitJSON(out Output) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("write JSON: %v", err)
	}
}
