package executor

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"agentexecutor/src/chain"
	"agentexecutor/src/connectors"
	"agentexecutor/src/controller"
	"agentexecutor/src/database"
	"agentexecutor/src/executors"
	"agentexecutor/src/gateway"
	"agentexecutor/src/repository"
	"agentexecutor/src/risk"
	"agentexecutor/src/server"
)

// Executor wires the full dependency graph and runs the selected services
// until interrupted.
type Executor struct {
	RunSignals bool
	RunMonitor bool
	RunServer  bool
}

func (e *Executor) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	// Initialize main (read/write) database
	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to main database")
		return err
	}

	// Initialize read-only signal database
	if err := database.InitSignalDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to signal database")
		return err
	}

	client, err := chain.Connect()
	if err != nil {
		logrus.WithError(err).Error("Failed to connect to chain RPC")
		return err
	}

	chainConfig := chain.GetConfig()
	nonces := chain.NewNonceCoordinator(client.RPC(), chainConfig.NonceAcquireTimeout)

	gw, err := gateway.New(client, nonces)
	if err != nil {
		logrus.WithError(err).Error("Failed to build execution gateway")
		return err
	}

	venueRepo := repository.NewVenueRepository()
	positionRepo := repository.NewPositionRepository()
	deploymentRepo := repository.NewDeploymentRepository()
	signalRepo := repository.NewSignalRepository()
	billingRepo := repository.NewBillingRepository()
	exceptionRepo := repository.NewExceptionRepository()

	mids := connectors.NewMidsStream()
	go mids.Run(ctx)

	provider := connectors.StaticConnectorProvider{}
	spot := connectors.NewSpotConnector(client, venueRepo, gw, chainConfig.ChainID)
	provider[spot.Venue()] = spot
	hyperliquid := connectors.NewHyperliquidConnector(mids)
	provider[hyperliquid.Venue()] = hyperliquid
	gmx := connectors.NewGMXConnector()
	provider[gmx.Venue()] = gmx

	validator := risk.NewValidator(venueRepo)

	coordinator := controller.NewTradeCoordinator(
		gw,
		provider,
		validator,
		venueRepo,
		positionRepo,
		deploymentRepo,
		signalRepo,
		billingRepo,
		exceptionRepo,
		chainConfig.ChainID,
	)

	var reference executors.ReferencePriceSource
	if connectors.GetConfig().ReferenceFeedEnabled {
		reference = connectors.NewReferenceFeed()
	}

	errCh := make(chan error, 3)

	if e.RunSignals {
		loop := executors.NewSignalLoop(signalRepo, deploymentRepo, coordinator)
		go func() { errCh <- loop.Run(ctx) }()
	}

	if e.RunMonitor {
		monitor := executors.NewMonitorLoop(positionRepo, provider, coordinator, reference)
		go func() { errCh <- monitor.Run(ctx) }()
	}

	if e.RunServer {
		go func() {
			server.StartServer(ctx, server.GetConfig().Port, positionRepo, coordinator)
			errCh <- nil
		}()
	}

	select {
	case <-ctx.Done():
		logrus.Info("shutdown signal received")
		return nil
	case err := <-errCh:
		if err != nil {
			logrus.WithError(err).Error("service exited with error")
		}
		return err
	}
}
