package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/erauner12/toolbridge-resources/internal/resource"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // The remote call failed and the workflow rolled back
	ExitCommandError = 2 // Bad arguments or configuration
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// CLIResponse is the JSON envelope printed in json format.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Label   string `json:"label,omitempty"` // workflow that failed, for remote errors
	Message string `json:"message"`
}

// ResourceView is how one resource is printed
type ResourceView struct {
	LocalID    resource.LocalID    `json:"localId"`
	Attributes resource.Attributes `json:"attributes"`
	Pending    resource.Label      `json:"pending,omitempty"`
	Error      string              `json:"error,omitempty"`
}

func viewOf(r *resource.Resource) ResourceView {
	v := ResourceView{LocalID: r.LocalID, Attributes: r.Attributes}
	if r.Request != nil {
		v.Pending = r.Request.Label
	}
	if r.Error != nil {
		v.Error = r.Error.Error()
	}
	return v
}

// Resources prints resources, one per line in text format
func (f *OutputFormatter) Resources(rs []*resource.Resource) error {
	views := make([]ResourceView, 0, len(rs))
	for _, r := range rs {
		views = append(views, viewOf(r))
	}

	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: views})
	}

	for _, v := range views {
		attrs, err := json.Marshal(v.Attributes)
		if err != nil {
			return err
		}
		fmt.Fprintf(f.Writer, "#%d %s", v.LocalID, attrs)
		if v.Error != "" {
			fmt.Fprintf(f.Writer, " error=%q", v.Error)
		}
		fmt.Fprintln(f.Writer)
	}
	if len(views) == 0 {
		fmt.Fprintln(f.Writer, "(no resources)")
	}
	return nil
}

// Message prints a one-line confirmation
func (f *OutputFormatter) Message(msg string) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: map[string]string{"message": msg}})
	}
	fmt.Fprintln(f.Writer, msg)
	return nil
}

// Error prints a failed workflow. Remote failures carry their workflow label.
func (f *OutputFormatter) Error(err error) error {
	cliErr := &CLIError{Message: err.Error()}
	var remote *resource.RemoteError
	if errors.As(err, &remote) {
		cliErr.Label = string(remote.Label)
	}

	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: cliErr})
	}
	if cliErr.Label != "" {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", cliErr.Label, cliErr.Message)
		return nil
	}
	fmt.Fprintf(f.Writer, "Error: %s\n", cliErr.Message)
	return nil
}
