package apperror

import (
	"errors"
	"net/http"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "without field",
			err:      New(CodeSolveError, "lp is infeasible"),
			expected: "[SOLVE_ERROR] lp is infeasible",
		},
		{
			name:     "with field",
			err:      New(CodeSchemaError, "unknown node type").WithField("nodes[3].type"),
			expected: "[SCHEMA_ERROR] unknown node type (field: nodes[3].type)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := Wrap(cause, CodeInternal, "wrapped error")

	if unwrapped := err.Unwrap(); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestError_HTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     ErrorCode
		expected int
	}{
		{"schema error", CodeSchemaError, http.StatusBadRequest},
		{"build error", CodeBuildError, http.StatusUnprocessableEntity},
		{"not found", CodeNotFound, http.StatusNotFound},
		{"unauthenticated", CodeUnauthenticated, http.StatusUnauthorized},
		{"solve error", CodeSolveError, http.StatusConflict},
		{"internal", CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "x")
			if got := err.HTTPStatus(); got != tt.expected {
				t.Errorf("HTTPStatus() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestError_ExitCode(t *testing.T) {
	tests := []struct {
		code     ErrorCode
		expected int
	}{
		{CodeSchemaError, 1},
		{CodeBuildError, 1},
		{CodeInvalidArgument, 1},
		{CodeDataError, 3},
		{CodeSolveError, 2},
		{CodeStateError, 2},
	}

	for _, tt := range tests {
		if got := New(tt.code, "x").ExitCode(); got != tt.expected {
			t.Errorf("ExitCode(%s) = %v, want %v", tt.code, got, tt.expected)
		}
	}
}

func TestWithLocation(t *testing.T) {
	err := New(CodeSolveError, "infeasible").WithLocation("lp", "reservoir1", 2, 37)
	if err.Details["component"] != "lp" || err.Details["name"] != "reservoir1" ||
		err.Details["scenario"] != 2 || err.Details["timestep"] != 37 {
		t.Errorf("WithLocation did not stamp all fields: %+v", err.Details)
	}
}

func TestRunError(t *testing.T) {
	r := &RunError{}
	if r.HasFailures() {
		t.Fatal("expected no failures initially")
	}
	r.Add(3, New(CodeSolveError, "infeasible"))
	if !r.HasFailures() {
		t.Fatal("expected failures after Add")
	}
	if r.Failures[0].Scenario != 3 {
		t.Errorf("Scenario = %d, want 3", r.Failures[0].Scenario)
	}
}

func TestValidationErrors(t *testing.T) {
	v := NewValidationErrors()
	v.AddWarning(CodeDataError, "missing optional table")
	v.AddError(CodeSchemaError, "missing required field")

	if !v.HasErrors() {
		t.Fatal("expected HasErrors true")
	}
	if v.IsValid() {
		t.Fatal("expected IsValid false")
	}
	if len(v.Warnings) != 1 {
		t.Errorf("Warnings = %d, want 1", len(v.Warnings))
	}
}

func TestCode(t *testing.T) {
	err := New(CodeBuildError, "x")
	if Code(err) != CodeBuildError {
		t.Errorf("Code() = %v, want %v", Code(err), CodeBuildError)
	}
	if Code(errors.New("plain")) != CodeInternal {
		t.Error("Code() of a plain error should default to CodeInternal")
	}
}
