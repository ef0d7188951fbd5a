package cmd

import (
	"context"
	"io"
)

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Interfaces that the various commands can implement to respond to various situations.

type SetRestArgumentsAPI interface {
	// Install any left-over arguments into the arguments object
	SetRestArguments(args []string)

	// What the rest arguments are, for the usage line
	RestName() string
}

///////////////////////////////////////////////////////////////////////////////////////////////////
//
// Any command must be able to define and validate command line args, and handle some developer
// arguments.

type Command interface {
	// Return the name of the cpu profile file, if requested
	CpuProfileFile() string

	// Documentation, with formatting and line breaks
	Summary(out io.Writer)

	// Add all arguments including shared arguments
	Add(fs *CLI)

	// Validate all arguments including shared arguments
	Validate() error

	// The -v, -debug and -log-json flags
	LoggingFlags() *LoggingArgs

	// Run the command.  Blocking work observes ctx.
	Perform(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) error
}
