// Package core provides the conversion logic for CSV to XLSX batches.
//
// This package has no UI or transport dependencies. It is used by the web
// handlers, the csvxlsx CLI and the tests without modification.
//
// # Pipeline
//
// Each uploaded file flows through the same stages:
//
//	bytes -> DetectDelimiter -> ParseTable -> Summarize / EncodeXLSX -> PackageArchive
//
// [Converter.ConvertBatch] runs the stages for every file of a request, in
// upload order, and isolates failures so that one bad file never stops the
// rest of the batch.
//
// # Access
//
// A [Gate] holds the shared password. Callers evaluate it once per request
// before handing any file to the Converter:
//
//	gate := core.NewGate(cfg.Access.Password)
//	if d := gate.Evaluate(r.FormValue("password")); !d.Allowed {
//	    // render the form, with d.Notice() when non-empty
//	}
//
// # Errors
//
// Every per-file failure is a [*FileError] carrying an [ErrorKind]. Use
// [KindOf] or errors.As to branch; use [MapError] to obtain a message that
// is safe to show to users.
package core
