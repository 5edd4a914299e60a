//go:build !portaudio

package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"
)

var errNoLiveSupport = errors.New("live audio support not compiled in; rebuild with -tags portaudio")

func liveCommand() *cli.Command {
	return &cli.Command{
		Name:  "live",
		Usage: "Compress the default input device to the default output device (requires -tags portaudio)",
		Action: func(context.Context, *cli.Command) error {
			return errNoLiveSupport
		},
	}
}
