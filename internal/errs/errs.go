// Package errs is the single diagnostic sink shared by the scanner,
// parser, and semantic analyzer.
//
// Every lexical, syntactic, or semantic problem is reported here as a
// (position, code) pair rather than as a Go error - per the propagation
// policy of the compiler, nothing recovers locally and nothing panics,
// with the sole exception of the two fatal I/O conditions the driver
// itself handles (source file and output file open failures).
package errs

import (
	"bufio"
	"fmt"
	"io"
	"sort"

	"github.com/skx/adacomp/internal/token"
)

// Code identifies the kind of diagnostic. The numeric values are part of
// the external interface described in the specification and must not be
// renumbered.
type Code int

const (
	ExpectedSemicolon Code = iota + 1
	UnexpectedCharacter
	NumericFormat
	NotDeclared
	DuplicateDeclaration
	TypeMismatch
	BooleanRequired
	ArithmeticRequired
	BothStringsRequired
	ParameterModeExpected
	IdentifierNotAssignable
	ExitOutsideLoop
	TypeNameExpected
	EndIdentifierMismatch
	EndOfProgramExpected
	IllegalUnderscore
	UnterminatedString
)

// messages gives the human-readable text for each code.
var messages = map[Code]string{
	ExpectedSemicolon:       "';' expected",
	UnexpectedCharacter:     "unexpected character",
	NumericFormat:           "malformed numeric literal",
	NotDeclared:             "identifier not declared",
	DuplicateDeclaration:    "duplicate declaration",
	TypeMismatch:            "type mismatch",
	BooleanRequired:         "boolean expression required",
	ArithmeticRequired:      "numeric operands required",
	BothStringsRequired:     "string operand required",
	ParameterModeExpected:   "parameter mode (VALUE or REF) expected",
	IdentifierNotAssignable: "identifier is not assignable",
	ExitOutsideLoop:         "EXIT outside of a loop",
	TypeNameExpected:        "type name expected",
	EndIdentifierMismatch:   "END identifier does not match enclosing name",
	EndOfProgramExpected:    "end of program expected",
	IllegalUnderscore:       "illegal underscore in identifier",
	UnterminatedString:      "unterminated string literal",
}

// Diagnostic is a single reported error.
type Diagnostic struct {
	Pos  token.Position
	Code Code
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: error: %s", d.Pos, messages[d.Code])
}

// Sink accumulates diagnostics for one compilation and can render a
// listing that interleaves source lines with the diagnostics that fall
// on them.
type Sink struct {
	diags []Diagnostic
}

// New returns an empty sink.
func New() *Sink {
	return &Sink{}
}

// Report records a diagnostic at an explicit position.
func (s *Sink) Report(pos token.Position, code Code) {
	s.diags = append(s.diags, Diagnostic{Pos: pos, Code: code})
}

// ReportAt records a diagnostic at the position of a token - a
// convenience for the parser, which usually has a token in hand rather
// than a bare position.
func (s *Sink) ReportAt(tok token.Token, code Code) {
	s.Report(tok.Pos, code)
}

// Count returns the total number of diagnostics reported so far.
func (s *Sink) Count() int {
	return len(s.diags)
}

// Diagnostics returns the accumulated diagnostics, in the order reported.
func (s *Sink) Diagnostics() []Diagnostic {
	return s.diags
}

// Listing writes source lines interleaved with the diagnostics that
// apply to each line, in source order, to w.
func (s *Sink) Listing(w io.Writer, source io.Reader) error {
	byLine := make(map[int][]Diagnostic)
	for _, d := range s.diags {
		byLine[d.Pos.Line] = append(byLine[d.Pos.Line], d)
	}

	scanner := bufio.NewScanner(source)
	line := 0
	for scanner.Scan() {
		line++
		if _, err := fmt.Fprintf(w, "%5d  %s\n", line, scanner.Text()); err != nil {
			return err
		}
		ds := byLine[line]
		sort.Slice(ds, func(i, j int) bool { return ds[i].Pos.Col < ds[j].Pos.Col })
		for _, d := range ds {
			if _, err := fmt.Fprintf(w, "       ^ %s\n", d); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "\n%d error(s)\n", s.Count()); err != nil {
		return err
	}
	return nil
}
