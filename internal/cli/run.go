package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/raysh454/hdrscan/internal/analyzer"
	"github.com/raysh454/hdrscan/internal/app"
	"github.com/raysh454/hdrscan/internal/checks"
	"github.com/raysh454/hdrscan/internal/highlight"
	"github.com/raysh454/hdrscan/internal/logging"
	"github.com/raysh454/hdrscan/internal/server"
)

// Run executes one invocation and returns the process exit code: 0 when every
// shown endpoint is OK overall, 1 when one is WARN or FAIL, 2 on errors.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	parsed, err := ParseArgs(args)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	cfg, err := loadConfig(parsed)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	logger := logging.NewWriterLogger("hdrscan", stderr)

	if parsed.Command == CommandServe {
		if err := serve(ctx, cfg, logger); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		return 0
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	defer a.Close()

	switch parsed.Command {
	case CommandScan:
		req := app.ScanRequest{Targets: parsed.Targets, Crawl: parsed.Crawl, Origin: parsed.Origin}
		res, err := a.Scan(ctx, req, app.ScanHooks{})
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		fmt.Fprintf(stderr, "scanned %d urls: %d analyzed, %d excluded, %d skipped\n",
			len(res.URLs), res.Summary.Analyzed, res.Summary.Excluded, res.Summary.Skipped)
	case CommandAnalyze:
		pairs, err := loadPairs(parsed)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
		if _, err := a.Analyzer.Run(ctx, analyzer.RawSource(pairs), nil); err != nil {
			fmt.Fprintln(stderr, err)
			return 2
		}
	}

	failing, err := report(ctx, a, parsed, stdout)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if failing {
		return 1
	}
	return 0
}

func loadConfig(args *CLIArgs) (*app.Config, error) {
	cfg := app.DefaultConfig()
	if args.ConfigPath != "" {
		var err error
		if cfg, err = app.LoadConfig(args.ConfigPath); err != nil {
			return nil, err
		}
	}
	if args.ListenAddr != "" {
		cfg.ListenAddr = args.ListenAddr
	}
	return cfg, nil
}

// loadPairs reads the exchanges to analyze. A pairs file may be YAML or JSON.
func loadPairs(args *CLIArgs) ([]analyzer.RawPair, error) {
	if args.PairsFile != "" {
		b, err := os.ReadFile(args.PairsFile)
		if err != nil {
			return nil, err
		}
		var pairs []analyzer.RawPair
		if err := yaml.Unmarshal(b, &pairs); err != nil {
			return nil, fmt.Errorf("parse %s: %w", args.PairsFile, err)
		}
		return pairs, nil
	}
	req, err := os.ReadFile(args.RequestFile)
	if err != nil {
		return nil, err
	}
	resp, err := os.ReadFile(args.ResponseFile)
	if err != nil {
		return nil, err
	}
	return []analyzer.RawPair{{
		Request:    string(req),
		Response:   string(resp),
		UseTLS:     args.UseTLS,
		ServerName: args.ServerName,
	}}, nil
}

func filterFor(args *CLIArgs) (analyzer.Filter, error) {
	f := analyzer.Filter{Methods: args.Methods, Text: args.Filter}
	for _, s := range args.Status {
		c, err := analyzer.ParseStatusClass(s)
		if err != nil {
			return f, err
		}
		f.StatusClasses = append(f.StatusClasses, c)
	}
	return f, nil
}

// report prints every stored endpoint matching the filter and reports whether
// any of them is not OK overall. Advisory checks do not count.
func report(ctx context.Context, a *app.Application, args *CLIArgs, w io.Writer) (bool, error) {
	f, err := filterFor(args)
	if err != nil {
		return false, err
	}
	rows, err := a.Rows(ctx, f)
	if err != nil {
		return false, err
	}

	var (
		all     []*app.Analysis
		failing bool
	)
	for _, row := range rows {
		an, err := a.Entry(ctx, row.Key)
		if err != nil {
			return false, err
		}
		failing = failing || row.Overall == checks.StatusWarn || row.Overall == checks.StatusFail
		all = append(all, an)
	}

	if args.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if all == nil {
			all = []*app.Analysis{}
		}
		return failing, enc.Encode(all)
	}
	for _, an := range all {
		if err := writeAnalysis(w, a.Registry, an, !args.NoColor); err != nil {
			return false, err
		}
	}
	return failing, nil
}

func writeAnalysis(w io.Writer, reg *checks.Registry, an *app.Analysis, color bool) error {
	fmt.Fprintf(w, "%s %s [%s] %s\n", an.Row.Method, an.Row.URL, an.Row.Status, an.Row.Overall)
	for _, line := range an.Lines {
		io.WriteString(w, "  ")
		if color {
			if err := highlight.WriteANSI(w, line.Runs); err != nil {
				return err
			}
			continue
		}
		io.WriteString(w, highlight.PlainText(line.Runs)+"\n")
	}
	io.WriteString(w, "\n")
	if an.Entry.Results == nil {
		return nil
	}
	return checks.WriteReport(w, reg, an.Entry.Results)
}

func serve(ctx context.Context, cfg *app.Config, logger logging.Logger) error {
	srv, err := server.NewServer(server.Config{AppConfig: cfg, Logger: logger})
	if err != nil {
		return err
	}
	defer srv.Close()

	httpSrv := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", logging.Field{Key: "addr", Value: httpSrv.Addr})
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
