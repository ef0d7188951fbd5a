// `navstat` -- Extract, summarize and compare statistics from Nsight Systems GPU traces
//
// Run `navstat help` for brief help and `navstat <verb> -h` for the options of a verb.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"

	. "navstat/cmd"
	"navstat/cmd/compare"
	"navstat/cmd/extract"
	"navstat/cmd/serve"
	"navstat/cmd/summary"
	"navstat/cmd/version"
)

func main() {
	err := navstat()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func navstat() error {
	cmd, verb := commandLine()

	stopLogging, err := cmd.LoggingFlags().ConfigureLogging("navstat/" + verb)
	if err != nil {
		return err
	}
	defer stopLogging()

	if cmd.CpuProfileFile() != "" {
		f, err := os.Create(cmd.CpuProfileFile())
		if err != nil {
			return fmt.Errorf("Failed to create profile\n%w", err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	// The daemon handles its own signals.
	ctx := context.Background()
	if verb != "serve" {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}
	return cmd.Perform(ctx, os.Stdin, os.Stdout, os.Stderr)
}

func printHelp(out io.Writer, name string) {
	fmt.Fprintf(out, "Usage: %s command [options] file ...\n", name)
	fmt.Fprintf(out, "Commands:\n")
	fmt.Fprintf(out, "  extract  - build, save and print reports from traces\n")
	fmt.Fprintf(out, "  summary  - print the tables of saved reports\n")
	fmt.Fprintf(out, "  compare  - compare saved reports of several traces\n")
	fmt.Fprintf(out, "  serve    - serve saved reports over HTTP\n")
	fmt.Fprintf(out, "  version  - print information about the program\n")
	fmt.Fprintf(out, "  help     - print this message\n")
	fmt.Fprintf(out, "Each command accepts -h to further explain options.\n")
}

func commandLine() (Command, string) {
	out := CLIOutput()

	if len(os.Args) < 2 {
		fmt.Fprintf(out, "Required operation missing, try `navstat help`\n")
		os.Exit(2)
	}

	var cmd Command
	var verb = os.Args[1]
	switch verb {
	case "help", "-h", "-help", "--help":
		printHelp(out, os.Args[0])
		os.Exit(0)
	case "extract":
		cmd = new(extract.ExtractCommand)
	case "summary":
		cmd = new(summary.SummaryCommand)
	case "compare":
		cmd = new(compare.CompareCommand)
	case "serve", "daemon":
		cmd = serve.New(version.Version())
		verb = "serve"
	case "version":
		cmd = new(version.VersionCommand)
	default:
		fmt.Fprintf(out, "Unknown operation %s, try `navstat help`\n", verb)
		os.Exit(2)
	}

	fs := NewCLI(verb, cmd, os.Args[0], false)
	cmd.Add(fs)
	if err := fs.Parse(os.Args[2:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	rest := fs.Args()
	if len(rest) > 0 {
		if rCmd, ok := cmd.(SetRestArgumentsAPI); ok {
			rCmd.SetRestArguments(rest)
		} else {
			fmt.Fprintf(out, "Rest arguments not accepted by `%s`.\n", verb)
			os.Exit(2)
		}
	}

	err := cmd.Validate()
	if err != nil {
		fmt.Fprintf(out, "Bad arguments, try -h\n%v\n", err.Error())
		os.Exit(2)
	}

	return cmd, verb
}
