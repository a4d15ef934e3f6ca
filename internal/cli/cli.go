package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
)

const (
	CommandScan    = "scan"
	CommandAnalyze = "analyze"
	CommandServe   = "serve"
)

var ErrUsage = errors.New("usage: hdrscan <scan|analyze|serve> [flags]")

// CLIArgs are the command-line arguments of a single invocation.
type CLIArgs struct {
	Command string

	// ConfigPath is an optional YAML config file.
	ConfigPath string

	// scan
	Targets []string
	Crawl   bool
	Origin  string

	// analyze: either a request/response file pair or a pairs file
	RequestFile  string
	ResponseFile string
	PairsFile    string
	UseTLS       bool
	ServerName   string

	// serve
	ListenAddr string

	// output
	JSON    bool
	NoColor bool
	Methods []string
	Status  []string
	Filter  string

	// RawArgs is the original args slice (useful for debugging/tests).
	RawArgs []string
}

type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// ParseArgs parses a slice of args and returns CLIArgs. Use in tests by passing
// arbitrary slices. The function is deterministic and does not read os.Args.
func ParseArgs(args []string) (*CLIArgs, error) {
	if len(args) == 0 {
		return nil, ErrUsage
	}
	out := &CLIArgs{Command: args[0], RawArgs: args}

	fs := flag.NewFlagSet("hdrscan "+args[0], flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&out.ConfigPath, "config", "", "YAML config file")

	var methods, status listFlag
	addOutputFlags := func() {
		fs.BoolVar(&out.JSON, "json", false, "Print results as JSON")
		fs.BoolVar(&out.NoColor, "no-color", false, "Disable coloured header lines")
		fs.Var(&methods, "method", "Only show these methods (repeatable, comma separated)")
		fs.Var(&status, "status", "Only show these status classes, e.g. 2xx (repeatable)")
		fs.StringVar(&out.Filter, "filter", "", "Only show rows containing this text")
	}

	switch args[0] {
	case CommandScan:
		addOutputFlags()
		fs.BoolVar(&out.Crawl, "crawl", false, "Follow same-host links from each target")
		fs.StringVar(&out.Origin, "origin", "", "Origin header sent with every request")
	case CommandAnalyze:
		addOutputFlags()
		fs.StringVar(&out.RequestFile, "request", "", "File holding the raw request")
		fs.StringVar(&out.ResponseFile, "response", "", "File holding the raw response")
		fs.StringVar(&out.PairsFile, "pairs", "", "YAML or JSON list of {request, response, use_tls, server_name}")
		fs.BoolVar(&out.UseTLS, "tls", false, "The exchange was made over HTTPS")
		fs.StringVar(&out.ServerName, "server-name", "", "Host used when the request lacks a Host header")
	case CommandServe:
		fs.StringVar(&out.ListenAddr, "listen", "", "Listen address (overrides config)")
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	if err := fs.Parse(args[1:]); err != nil {
		return nil, err
	}
	out.Methods = upper(methods)
	out.Status = status

	switch out.Command {
	case CommandScan:
		out.Targets = fs.Args()
		if len(out.Targets) == 0 {
			return nil, fmt.Errorf("scan: at least one target URL is required")
		}
	case CommandAnalyze:
		single := out.RequestFile != "" || out.ResponseFile != ""
		if single == (out.PairsFile != "") {
			return nil, fmt.Errorf("analyze: pass either -request and -response or -pairs")
		}
		if single && (out.RequestFile == "" || out.ResponseFile == "") {
			return nil, fmt.Errorf("analyze: -request and -response go together")
		}
	}
	return out, nil
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}
