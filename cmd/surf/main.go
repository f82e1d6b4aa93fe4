package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/wizenheimer/surf/internal/config"
	"github.com/wizenheimer/surf/internal/logger"
)

const usage = `usage: surf <command> [flags]

commands:
  build   index a directory of documents
  query   run a file of queries against an index
  serve   answer queries over HTTP

Run "surf <command> -h" for the flags of a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var run func(cfg *config.Config, args []string) error
	switch os.Args[1] {
	case "build":
		run = runBuild
	case "query":
		run = runQuery
	case "serve":
		run = runServe
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	cfg, args, err := loadConfig(os.Args[1], os.Args[2:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg, args); err != nil {
		slog.Error("command failed", "command", os.Args[1], "error", err)
		os.Exit(1)
	}
}

// loadConfig pulls -config out of args, loads it, and returns the remaining
// arguments for the command's own flag set
func loadConfig(command string, args []string) (*config.Config, []string, error) {
	var path string
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "-config" || arg == "--config":
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("%s: -config needs a value", command)
			}
			path = args[i+1]
			i++
		case strings.HasPrefix(arg, "-config="), strings.HasPrefix(arg, "--config="):
			_, path, _ = strings.Cut(arg, "=")
		default:
			rest = append(rest, arg)
		}
	}
	cfg, err := config.Load(path)
	return cfg, rest, err
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("surf "+name, flag.ContinueOnError)
	fs.String("config", "", "path to config file")
	return fs
}
