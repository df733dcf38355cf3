// Package node launches the beats node and manages the lifecycle of all its
// services: the ledger client, the anchor advancer, and the HTTP API.
package node

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/provenonce/beats/async"
	"github.com/provenonce/beats/beats-node/anchor"
	"github.com/provenonce/beats/beats-node/cache"
	"github.com/provenonce/beats/beats-node/ledger"
	"github.com/provenonce/beats/beats-node/rpc"
	"github.com/provenonce/beats/beats-node/rpc/beats"
	"github.com/provenonce/beats/beats-node/rpc/ratelimit"
	"github.com/provenonce/beats/cmd/beats/flags"
	"github.com/provenonce/beats/config/params"
	"github.com/provenonce/beats/crypto/keys"
	runtimeservice "github.com/provenonce/beats/runtime"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var log = logrus.WithField("prefix", "node")

const defaultRPCEndpoint = "https://api.devnet.solana.com"

// BeatsNode owns the service registry and shuts everything down on
// interrupt.
type BeatsNode struct {
	cliCtx   *cli.Context
	ctx      context.Context
	cancel   context.CancelFunc
	services *runtimeservice.ServiceRegistry
	lock     sync.Mutex
	stop     chan struct{}
}

// New builds the node from environment and flags. The anchor keypair is the
// only hard requirement; without it the service can neither publish nor
// sign.
func New(cliCtx *cli.Context) (*BeatsNode, error) {
	if path := cliCtx.String(flags.ChainConfigFile.Name); path != "" {
		if err := params.LoadChainConfigFile(path); err != nil {
			return nil, err
		}
	}

	secret := os.Getenv("BEATS_ANCHOR_KEYPAIR")
	if secret == "" {
		return nil, errors.New("BEATS_ANCHOR_KEYPAIR is required")
	}
	keyManager, err := keys.NewManager(secret)
	if err != nil {
		return nil, errors.Wrap(err, "load anchor keypair")
	}

	cronSecret := os.Getenv("CRON_SECRET")
	if cronSecret == "" {
		log.Warn("CRON_SECRET is not set; the anchor advance endpoint will refuse all requests")
	}
	proToken := os.Getenv("BEATS_PRO_TIER_TOKEN")

	endpoint := cliCtx.String(flags.RPCEndpoint.Name)
	if endpoint == "" {
		endpoint = os.Getenv("NEXT_PUBLIC_SOLANA_RPC_URL")
	}
	if endpoint == "" {
		endpoint = os.Getenv("SOLANA_RPC_URL")
	}
	if endpoint == "" {
		endpoint = defaultRPCEndpoint
	}

	ctx, cancel := context.WithCancel(cliCtx.Context)
	node := &BeatsNode{
		cliCtx:   cliCtx,
		ctx:      ctx,
		cancel:   cancel,
		services: runtimeservice.NewServiceRegistry(),
		stop:     make(chan struct{}),
	}

	cfg := params.BeatsConfig()
	client := ledger.NewRPCClient(endpoint, keyManager.WriterKey())
	anchors := cache.NewAnchorCache(client)
	advancer := &anchor.Advancer{Ledger: client}

	requestLimiter := ratelimit.NewFixedWindow(cfg.RequestsPerMinute, time.Minute, cfg.RateLimitMaxKeys)
	limiters := []*ratelimit.FixedWindow{
		requestLimiter,
		ratelimit.NewFixedWindow(cfg.TimestampPerMinute, time.Minute, cfg.RateLimitMaxKeys),
		ratelimit.NewFixedWindow(cfg.TimestampPerDay, 24*time.Hour, cfg.RateLimitMaxKeys),
		ratelimit.NewFixedWindow(cfg.ProTierPerMinute, time.Minute, cfg.RateLimitMaxKeys),
		ratelimit.NewFixedWindow(cfg.ProTierPerDay, 24*time.Hour, cfg.RateLimitMaxKeys),
	}
	async.RunEvery(ctx, time.Minute, func() {
		for _, l := range limiters {
			l.Sweep()
		}
	})

	handler := &beats.Server{
		Ledger:                 client,
		Keys:                   keyManager,
		Anchors:                anchors,
		Advancer:               advancer,
		RequestLimiter:         limiters[0],
		TimestampMinuteLimiter: limiters[1],
		TimestampDayLimiter:    limiters[2],
		ProMinuteLimiter:       limiters[3],
		ProDayLimiter:          limiters[4],
		CostBudget:             ratelimit.NewCostBudget(cfg.HashOpsBurst, cfg.HashOpsPerSec),
		CronSecret:             cronSecret,
		ProTierToken:           proToken,
		Cluster:                clusterFromEndpoint(endpoint),
	}

	httpAddr := fmt.Sprintf("%s:%d", cliCtx.String(flags.HTTPHost.Name), cliCtx.Int(flags.HTTPPort.Name))
	httpService, err := rpc.NewService(ctx, &rpc.Config{HTTPAddr: httpAddr, Handler: handler})
	if err != nil {
		return nil, err
	}
	if err := node.services.RegisterService(httpService); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"anchor_signer": keyManager.WriterAddress(),
		"endpoint":      endpoint,
		"cluster":       clusterFromEndpoint(endpoint),
		"http":          httpAddr,
	}).Info("Configured beats node")
	return node, nil
}

// clusterFromEndpoint derives the explorer cluster query value from the RPC
// URL; mainnet-beta is the explorer default and maps to an empty value.
func clusterFromEndpoint(endpoint string) string {
	switch {
	case strings.Contains(endpoint, "devnet"):
		return "devnet"
	case strings.Contains(endpoint, "testnet"):
		return "testnet"
	default:
		return ""
	}
}

// Start the node and every registered service, then block until interrupted.
func (n *BeatsNode) Start() {
	n.lock.Lock()
	log.Info("Starting beats node")
	n.services.StartAll()
	stop := n.stop
	n.lock.Unlock()

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigc)
		<-sigc
		log.Info("Got interrupt, shutting down...")
		go n.Close()
		for i := 10; i > 0; i-- {
			<-sigc
			if i > 1 {
				log.WithField("times", i-1).Info("Already shutting down, interrupt more to panic")
			}
		}
		panic("Panic closing the beats node")
	}()

	<-stop
}

// Close handles graceful shutdown of the node.
func (n *BeatsNode) Close() {
	n.lock.Lock()
	defer n.lock.Unlock()

	log.Info("Stopping beats node")
	n.services.StopAll()
	n.cancel()
	close(n.stop)
}
