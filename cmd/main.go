package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"agentexecutor/cmd/executor"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Agent Executor CMD"
	app.Usage = "The agent trade executor command line interface"

	app.Commands = []cli.Command{
		executorCMD,
		monitorCMD,
		serveCMD,
		runCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	executorCMD = cli.Command{
		Name:        "executor",
		Usage:       "run the signal executor loop",
		Action:      executorAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Poll for new signals and execute them against active deployments`,
	}
	monitorCMD = cli.Command{
		Name:        "monitor",
		Usage:       "run the position monitor loop",
		Action:      monitorAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Watch open positions and close them when exit conditions trigger`,
	}
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the ops API server",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Serve the operations API (health, open positions, manual close)`,
	}
	runCMD = cli.Command{
		Name:        "run",
		Usage:       "run executor, monitor and ops server together",
		Action:      runAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run every service in one process`,
	}
)

func executorAction(_ *cli.Context) error {
	logrus.Info("Starting signal executor CMD")

	e := &executor.Executor{RunSignals: true}
	if err := e.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func monitorAction(_ *cli.Context) error {
	logrus.Info("Starting position monitor CMD")

	e := &executor.Executor{RunMonitor: true}
	if err := e.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func serveAction(_ *cli.Context) error {
	logrus.Info("Starting ops server CMD")

	e := &executor.Executor{RunServer: true}
	if err := e.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func runAction(_ *cli.Context) error {
	logrus.Info("Starting all services CMD")

	e := &executor.Executor{RunSignals: true, RunMonitor: true, RunServer: true}
	if err := e.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}
