package gen

import "fmt"

// Warning records one exclusion decision: an unsupported parameter, an
// unresolvable content type, an invalid operationId. Warnings never abort
// the run; the affected operation is skipped and generation continues.
type Warning struct {
	Path        string
	Method      string
	OperationID string
	Reason      string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %s (%s): %s", w.Method, w.Path, w.OperationID, w.Reason)
}

// Sink receives warnings as they are produced. A nil sink drops them.
type Sink func(Warning)

func (s Sink) emit(path, method, opID, reason string) {
	if s == nil {
		return
	}
	s(Warning{Path: path, Method: method, OperationID: opID, Reason: reason})
}

// Collector is a convenience sink that gathers warnings for bulk reporting.
type Collector struct {
	Warnings []Warning
}

// Sink returns a Sink appending into the collector.
func (c *Collector) Sink() Sink {
	return func(w Warning) { c.Warnings = append(c.Warnings, w) }
}

// GenerationError is fatal to the whole run, e.g. a document with no paths
// container at all.
type GenerationError struct {
	Reason string
}

func (e *GenerationError) Error() string { return "gen: " + e.Reason }
