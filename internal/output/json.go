package output

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/tbot223/tbotcore/internal/models"
	"github.com/tbot223/tbotcore/pkg/result"
)

// Config controls how JSON is written.
type Config struct {
	Writer io.Writer
	Pretty bool
}

// DefaultConfig writes compact JSON to stdout. Set TBOTCORE_PRETTY_JSON=1
// (or true) for indented output.
func DefaultConfig() Config {
	v := os.Getenv("TBOTCORE_PRETTY_JSON")
	return Config{Writer: os.Stdout, Pretty: v == "1" || v == "true"}
}

// recoverableError mirrors models.RecoverableError.
type recoverableError interface {
	error
	ErrorCode() string
	Context() map[string]string
	SuggestedAction() string
}

// Response is the envelope for CLI-level failures that never reached a
// toolkit call (bad flags, unreadable config). It shares the Result field
// names and adds remediation hints when the error carries them.
type Response struct {
	Success         bool              `json:"success"`
	Error           string            `json:"error"`
	Context         *string           `json:"context"`
	Data            any               `json:"data"`
	ErrorCode       string            `json:"error_code,omitempty"`
	ErrorContext    map[string]string `json:"error_context,omitempty"`
	SuggestedAction string            `json:"suggested_action,omitempty"`
}

// Error wraps err in a failure Response.
func Error(err error) Response {
	resp := Response{Error: err.Error()}
	var re recoverableError
	if errors.As(err, &re) {
		resp.ErrorCode = re.ErrorCode()
		resp.ErrorContext = re.Context()
		resp.SuggestedAction = re.SuggestedAction()
	}
	return resp
}

// PrintWith encodes v as one JSON line (or indented block) to cfg.Writer.
func PrintWith(cfg Config, v any) error {
	w := cfg.Writer
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if cfg.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

// Print prints a value as JSON to stdout.
func Print(v any) error {
	return PrintWith(DefaultConfig(), v)
}

// PrintResult prints the Result envelope.
func PrintResult(r result.Result) error {
	return Print(r)
}

// PrintSuccess wraps data in a success Result and prints it.
func PrintSuccess(data any) error {
	return Print(result.OK(data))
}

// PrintError prints a failure Response for err.
func PrintError(err error) error {
	return Print(Error(err))
}

var _ recoverableError = (models.RecoverableError)(nil)
