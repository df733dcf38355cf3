// Package flags defines the command-line flags of the beats node.
package flags

import "github.com/urfave/cli/v2"

var (
	// HTTPHost specifies the interface the API server binds to.
	HTTPHost = &cli.StringFlag{
		Name:  "http-host",
		Usage: "Host on which the HTTP API server listens",
		Value: "127.0.0.1",
	}
	// HTTPPort specifies the port of the API server.
	HTTPPort = &cli.IntFlag{
		Name:  "http-port",
		Usage: "Port on which the HTTP API server listens",
		Value: 8551,
	}
	// RPCEndpoint overrides the ledger RPC endpoint from the environment.
	RPCEndpoint = &cli.StringFlag{
		Name:  "rpc-endpoint",
		Usage: "Solana RPC endpoint the anchor chain is read from and written to",
	}
	// ChainConfigFile loads config overrides from a yaml file.
	ChainConfigFile = &cli.StringFlag{
		Name:  "chain-config-file",
		Usage: "Path to a yaml file with chain config overrides",
	}
	// Verbosity sets the logging level.
	Verbosity = &cli.StringFlag{
		Name:  "verbosity",
		Usage: "Logging verbosity (trace, debug, info, warn, error)",
		Value: "info",
	}
)
