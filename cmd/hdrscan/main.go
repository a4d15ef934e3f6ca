// Command hdrscan checks HTTP response security headers.
//
// Usage:
//
//	hdrscan scan [-crawl] [-origin URL] [-config FILE] URL...
//	hdrscan analyze -request FILE -response FILE [-tls]
//	hdrscan analyze -pairs FILE
//	hdrscan serve [-listen ADDR] [-config FILE]
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/raysh454/hdrscan/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
