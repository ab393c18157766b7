// Package types defines the public report surface of the toolkit.
//
// The engine packages under internal/ produce these reports at the end of
// each stage: validation, decision, repair. Reports are plain data with
// deterministic ordering (artifact entries sorted by ID) plus formatters
// for JSON and human-readable text, so two runs over the same input
// produce byte-identical output.
package types
