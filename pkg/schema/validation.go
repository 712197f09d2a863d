package schema

import "fmt"

// ValidationSeverity tells errors, which reject a document, from warnings,
// which are reported alongside a successful render.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is one problem found in a render document. Path locates the
// offending node, e.g. "template[2].print.filter.args[0]".
type ValidationIssue struct {
	Path     string             `json:"path"`
	Code     string             `json:"code"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

func (i ValidationIssue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return i.Path + ": " + i.Message
}

// ValidationResult collects every issue of a document instead of stopping
// at the first one.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// Valid reports whether no errors were found. Warnings do not count.
func (r *ValidationResult) Valid() bool { return len(r.Errors) == 0 }

func (r *ValidationResult) AddError(path, code, message string) {
	r.Errors = append(r.Errors, ValidationIssue{Path: path, Code: code, Message: message, Severity: SeverityError})
}

func (r *ValidationResult) AddWarning(path, code, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{Path: path, Code: code, Message: message, Severity: SeverityWarning})
}

// Merge appends the issues of other. A nil other is a no-op.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// ToError returns nil for a valid result. A single error keeps its own code
// and reads "path: message"; several collapse into one VALIDATION_ERROR.
// Details always carry the full issue lists.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	code, msg := r.Errors[0].Code, r.Errors[0].String()
	if n := len(r.Errors); n > 1 {
		code, msg = ErrCodeValidation, fmt.Sprintf("document invalid with %d errors", n)
	}
	return NewError(code, msg).WithDetails(map[string]any{
		"error_count":   len(r.Errors),
		"warning_count": len(r.Warnings),
		"errors":        r.Errors,
		"warnings":      r.Warnings,
	})
}
