package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/cwbudde/algo-vocalcomp/dsp/effects/dynamics"
)

// readControl applies "name value" lines from r to the parameter store
// until ctx is done or r is exhausted. After ctx is done the goroutine may stay
// blocked in Scan until the next line or process exit; it holds no stream
// resources by then.
func readControl(ctx context.Context, r io.Reader, store *dynamics.ParamStore) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}

		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			slog.Warn("expected \"<name> <value>\"", "line", sc.Text())
			continue
		}

		var parseErr error

		err := store.Update(func(p *dynamics.Params) {
			parseErr = setParam(p, fields[0], fields[1])
		})
		if err = errors.Join(parseErr, err); err != nil {
			slog.Warn("parameter not applied", "error", err)
			continue
		}

		slog.Info("parameter applied", "name", fields[0], "value", fields[1])
	}
}
