package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tbot223/tbotcore/internal/output"
	"github.com/tbot223/tbotcore/pkg/result"
)

type printedError struct {
	err error
}

func (e printedError) Error() string {
	// The JSON envelope already went to stdout.
	return "error already printed"
}

func (e printedError) Unwrap() error { return e.err }

func cmdErr(err error) error {
	if err == nil {
		return nil
	}
	attrs := []any{"error", err.Error()}
	type slogAttrError interface {
		SlogAttrs() []any
	}
	var detailed slogAttrError
	if errors.As(err, &detailed) {
		attrs = append(attrs, detailed.SlogAttrs()...)
	}
	slog.Error("command error", attrs...)
	_ = output.PrintError(err)
	return printedError{err: err}
}

// emit prints r. A failed Result maps to printedError so the process exits 1
// without a second diagnostic line.
func emit(r result.Result) error {
	if err := output.PrintResult(r); err != nil {
		return err
	}
	if !r.Success() {
		return printedError{err: r.Unwrap()}
	}
	return nil
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
