package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/samvad-hq/easyxfer/internal/app"
	"github.com/samvad-hq/easyxfer/internal/config"
	"github.com/spf13/pflag"
)

// main always exits 0; failures are reported on stderr.
func main() {
	run(os.Args)
}

func run(args []string) {
	fs := pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	config.RegisterClientFlags(fs)
	fs.Usage = func() { usage(args[0], fs) }

	if err := fs.Parse(args[1:]); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, err)
			usage(args[0], fs)
		}
		return
	}
	if fs.NArg() != 1 {
		usage(args[0], fs)
		return
	}

	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return
	}

	rt, err := app.Start(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	defer rt.Close()

	rt.Client.RunFetch(fs.Arg(0))
}

func usage(prog string, fs *pflag.FlagSet) {
	fmt.Fprintf(os.Stdout, "\nUSAGE: %s [flags] <url>\n", prog)
	fmt.Fprintln(os.Stdout, "WHERE url URL of the server from where to fetch the data.")
	fmt.Fprintln(os.Stdout)
	fmt.Fprintln(os.Stdout, "FLAGS:")
	fmt.Fprint(os.Stdout, fs.FlagUsages())
	fmt.Fprintln(os.Stdout)
}
