// Command contextq-cli answers one question from the terminal:
//
//	contextq-cli "How do I undo a commit?" --role admin --user alice --account acme
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/contextq/internal/bootstrap"
	"github.com/kailas-cloud/contextq/internal/config"
	domquery "github.com/kailas-cloud/contextq/internal/domain/query"
	logpkg "github.com/kailas-cloud/contextq/internal/logger"
)

type options struct {
	question   string
	role       string
	user       string
	account    string
	configPath string
	verbose    bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}

	env := config.GetEnv()
	var cfg config.Config
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	level := ""
	if opts.verbose {
		level = "debug"
	}
	logger, err := logpkg.NewLogger(logpkg.EnvCLI, level)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", zap.Error(err))
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	defer app.Close()

	res, err := app.Query.Execute(ctx, domquery.Context{
		Question: opts.question,
		Role:     opts.role,
		User:     opts.user,
		Account:  opts.account,
	})
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	fmt.Fprintln(stdout, res.Format())
	if res.HallucinationSuspected {
		fmt.Fprintln(stderr, "warning: the response contains lines not found in the retrieved context")
	}
	return 0
}

// parseArgs accepts the question before, between or after the flags.
func parseArgs(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("contextq-cli", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.role, "role", "", "Role for the query (required)")
	fs.StringVar(&opts.user, "user", "", "User for the query (required)")
	fs.StringVar(&opts.account, "account", "", "Account for the query (required)")
	fs.StringVar(&opts.configPath, "config", "", "Path to a config file (default: config/$ENV.yaml)")
	fs.BoolVar(&opts.verbose, "verbose", false, "Log pipeline stages to stderr")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), `usage: contextq-cli "<question>" --role R --user U --account A`)
		fs.PrintDefaults()
	}

	// Flags may follow the question, so parsing resumes after each positional
	// argument until a "--" terminator hands everything else over verbatim.
	var positional []string
	rest := args
	for {
		if err := fs.Parse(rest); err != nil {
			return options{}, err
		}
		remaining := fs.Args()
		if endsWithTerminator(fs, rest[:len(rest)-len(remaining)]) {
			positional = append(positional, remaining...)
			break
		}
		if len(remaining) == 0 {
			break
		}
		positional = append(positional, remaining[0])
		rest = remaining[1:]
	}

	if len(positional) != 1 {
		fs.Usage()
		return options{}, fmt.Errorf("expected exactly one question, got %d", len(positional))
	}
	opts.question = positional[0]

	var missing []string
	for name, v := range map[string]string{"role": opts.role, "user": opts.user, "account": opts.account} {
		if v == "" {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return options{}, fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return opts, nil
}

// endsWithTerminator reports whether the tokens flag.Parse consumed ended with
// a "--" terminator rather than a flag value that happens to be "--".
func endsWithTerminator(fs *flag.FlagSet, consumed []string) bool {
	for i := 0; i < len(consumed); i++ {
		tok := consumed[i]
		if tok == "--" {
			return i == len(consumed)-1
		}
		name := strings.TrimLeft(tok, "-")
		if strings.Contains(name, "=") {
			continue
		}
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			continue
		}
		i++ // skip the value
	}
	return false
}
