// Package main defines the beats node binary: a stateless proof-of-elapsed-
// time verification service anchored to the Solana ledger.
package main

import (
	"os"
	"runtime"

	"github.com/provenonce/beats/beats-node/node"
	"github.com/provenonce/beats/cmd/beats/flags"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "main")

func startNode(ctx *cli.Context) error {
	beats, err := node.New(ctx)
	if err != nil {
		return err
	}
	beats.Start()
	return nil
}

func main() {
	app := cli.NewApp()
	app.Name = "beats"
	app.Usage = "public verification service for sequential-work hash chains"
	app.Action = startNode
	app.Flags = []cli.Flag{
		flags.HTTPHost,
		flags.HTTPPort,
		flags.RPCEndpoint,
		flags.ChainConfigFile,
		flags.Verbosity,
	}

	app.Before = func(ctx *cli.Context) error {
		runtime.GOMAXPROCS(runtime.NumCPU())
		formatter := new(prefixed.TextFormatter)
		formatter.TimestampFormat = "2006-01-02 15:04:05"
		formatter.FullTimestamp = true
		logrus.SetFormatter(formatter)
		level, err := logrus.ParseLevel(ctx.String(flags.Verbosity.Name))
		if err != nil {
			return err
		}
		logrus.SetLevel(level)
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
