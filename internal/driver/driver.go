// Package driver ties the scanner, parser, semantic analyzer and
// emitter together to compile one source file end to end.
//
// It owns the two fatal, unrecoverable conditions of the compiler -
// the source file failing to open and the output file failing to open
// or write - and wraps both with github.com/pkg/errors so the caller
// gets a file name and cause alongside the syscall error. Every other
// problem is a diagnostic recorded in the error sink, never a Go error.
package driver

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/skx/adacomp/internal/errs"
	"github.com/skx/adacomp/internal/parser"
)

// Option configures a Driver, following the functional-options shape
// used to configure a virtual-machine instance elsewhere in the
// ecosystem.
type Option func(*Driver) error

// Driver compiles a single source file to a listing of target-machine
// instructions.
type Driver struct {
	logger  logrus.FieldLogger
	listing bool
	dump    io.Writer
}

// WithLogger sets the logger the driver reports operational trace to.
// Compiler diagnostics (syntax/semantic errors) never go through this
// logger - they are the error sink's job.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Driver) error { d.logger = l; return nil }
}

// WithSymbolDump turns on symbol table listings at every scope close,
// written to w.
func WithSymbolDump(w io.Writer) Option {
	return func(d *Driver) error { d.dump = w; return nil }
}

// New returns a Driver with a discarding logger and no symbol dump
// unless overridden by opts.
func New(opts ...Option) (*Driver, error) {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	d := &Driver{logger: quiet}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Result is the outcome of compiling one source file.
type Result struct {
	Diagnostics []errs.Diagnostic
	Instructions int
}

// CompileFile compiles sourcePath into outputPath and returns the
// diagnostics produced. Emitter finalization is skipped entirely when
// any diagnostic was reported, and outputPath is then neither created
// nor truncated - a partially-typed instruction stream is never written
// out.
func (d *Driver) CompileFile(sourcePath, outputPath string) (Result, error) {
	src, err := os.Open(sourcePath)
	if err != nil {
		return Result{}, errors.Wrapf(err, "opening source file %q", sourcePath)
	}
	defer src.Close()

	d.logger.WithField("source", sourcePath).Debug("compilation started")
	start := time.Now()

	sink := errs.New()
	p := parser.New(src, sink)
	p.Parse(d.dump)

	result := Result{Diagnostics: sink.Diagnostics()}

	if sink.Count() != 0 {
		d.logger.WithField("errors", sink.Count()).Warn("compilation finished with diagnostics")
		return result, nil
	}

	// Opened only once compilation is known error-free: outputPath must
	// be left untouched - not even truncated - when diagnostics exist.
	out, err := os.Create(outputPath)
	if err != nil {
		return result, errors.Wrapf(err, "opening output file %q", outputPath)
	}
	defer out.Close()

	em := p.Emitter()
	if err := em.Finalize(out); err != nil {
		return result, errors.Wrap(err, "writing output file")
	}

	result.Instructions = len(em.Instructions())
	d.logger.WithField("instructions", result.Instructions).
		WithField("elapsed", time.Since(start)).
		Debug("compilation finished")
	return result, nil
}
