// Package cmd implements adacomp's command-line interface.
package cmd

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skx/adacomp/internal/driver"
	"github.com/skx/adacomp/internal/errs"
)

var (
	rootCmd = &cobra.Command{
		Use:          "adacomp <source-file>",
		Short:        "adacomp",
		SilenceUsage: true,
		Long:         `adacomp compiles a single source file into a listing of target-machine instructions.`,
		Args:         cobra.ExactArgs(1),
		RunE:         run,
	}

	listing bool
	output  string
	verbose bool
)

// Execute executes the root command.
func Execute() error {
	rootCmd.Flags().BoolVarP(&listing, "listing", "l", false, "write symbol table listings to the source name with its extension replaced by .lis")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "output file name (default: source name with its extension replaced by .pal)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level operational tracing")
	return rootCmd.Execute()
}

func run(c *cobra.Command, args []string) error {
	source := args[0]

	outPath := output
	if outPath == "" {
		outPath = withExtension(source, ".pal")
	}

	logger := logrus.StandardLogger()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	opts := []driver.Option{driver.WithLogger(logger)}

	if listing {
		lisPath := withExtension(source, ".lis")
		f, err := os.Create(lisPath)
		if err != nil {
			return err
		}
		defer f.Close()
		opts = append(opts, driver.WithSymbolDump(f))
	}

	d, err := driver.New(opts...)
	if err != nil {
		return err
	}

	res, err := d.CompileFile(source, outPath)
	if err != nil {
		return err
	}

	if len(res.Diagnostics) != 0 {
		listSourceErrors(source, res.Diagnostics)
	}

	return nil
}

// listSourceErrors reopens source and prints its diagnostics
// interleaved with the offending lines, via the error sink's listing
// format.
func listSourceErrors(source string, diags []errs.Diagnostic) {
	f, err := os.Open(source)
	if err != nil {
		return
	}
	defer f.Close()

	sink := errs.New()
	for _, d := range diags {
		sink.Report(d.Pos, d.Code)
	}
	_ = sink.Listing(os.Stderr, f)
}

// withExtension replaces path's extension with ext.
func withExtension(path, ext string) string {
	if i := strings.LastIndexByte(path, '.'); i >= 0 {
		return path[:i] + ext
	}
	return path + ext
}
