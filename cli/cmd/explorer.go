package cmd

import (
	"github.com/liamzebedee/tinydpos-go/explorer"
	"github.com/urfave/cli/v2"

	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func RunExplorer(cmdCtx *cli.Context) error {
	port := cmdCtx.Int("port")
	dbPath := cmdCtx.String("db")
	minActivatedStake := cmdCtx.Int64("min-activated-stake")

	gov, _, err := openGovernance(dbPath, minActivatedStake)
	if err != nil {
		return err
	}

	// Handle process signals.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c

		fmt.Println("Shutting down...")

		os.Exit(1)
	}()

	expl := explorer.NewGovernanceExplorerServer(gov, port)
	expl.Start()

	return nil
}
