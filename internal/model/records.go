package model

// CriticalRecord is one row of the critical-findings table.
type CriticalRecord struct {
	File        string
	ProgramType string
	Prefix      string
	FileClass   FileClass
	Locator     string
	Terms       []string
	Category    Category
	Pattern     string
	Rationale   string
	Code        string
}

// DiscardRecord is one row of the discarded table.
type DiscardRecord struct {
	File        string
	ProgramType string
	Prefix      string
	FileClass   FileClass
	Locator     string
	Terms       []string
	Reason      DiscardReason
	Code        string
}

// UnclassifiedRecord is one row of the manual-review table.
// Rationale is kept for logs and is not part of the table shape.
type UnclassifiedRecord struct {
	File      string
	Prefix    string
	FileClass FileClass
	Locator   string
	Terms     []string
	Rationale string
	Code      string
}

// DiagnosticKind tags a transcript line kept for coverage audits.
type DiagnosticKind string

const (
	DiagInvalidFormat DiagnosticKind = "formato inválido"
	DiagNoTerm        DiagnosticKind = "sem termo"
)

// Diagnostic is a transcript line that produced no record.
type Diagnostic struct {
	Kind   DiagnosticKind
	LineNo int
	Raw    string
}
