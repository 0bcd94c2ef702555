// Command mosra compiles land-use allocation problems into solver input.
//
// License
//
// Governed by a 3-Clause BSD license. License file may be found in the root
// folder of this module.
//
// Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/npillmayer/mosra/mosra/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	cli.Execute(ctx)
}
