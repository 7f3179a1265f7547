// Command patootie browses documents in the terminal, learning and caching
// one extraction parser per URL.
//
// Usage:
//
//	patootie https://news.example.com/          # browse from a URL
//	patootie -r https://news.example.com/       # regenerate the cached parser first
//	patootie --list https://news.example.com/   # show cached parser generations
//	patootie --pop https://news.example.com/    # delete the current generation
//	patootie -f page.html                       # show one local document
//	curl -s https://example.com/ | patootie     # show one piped document
//
// Exit status is 0 on a clean quit (or when the page was handed to the
// system browser), 2 on usage errors and 1 on any other failure.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hazyhaar/patootie/navigator"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	fmt.Fprintf(os.Stderr, "patootie: %v\n", err)
	if errors.Is(err, navigator.ErrUsage) {
		return 2
	}
	return 1
}
