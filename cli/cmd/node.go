package cmd

import (
	"github.com/liamzebedee/tinydpos-go/core/dpos"
	"github.com/urfave/cli/v2"

	"database/sql"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

const (
	DefaultElectionInterval  = 60 * time.Second
	DefaultMinActivatedStake = int64(150_000_000)
)

func openGovernance(dbPath string, minActivatedStake int64) (*dpos.Governance, *sql.DB, error) {
	db, err := dpos.OpenDB(dbPath)
	if err != nil {
		return nil, nil, err
	}
	_, err = db.Exec("PRAGMA journal_mode = WAL;")
	if err != nil {
		return nil, nil, err
	}

	gov := dpos.NewGovernanceFromDB(db, dpos.GovernanceConfig{
		MinActivatedStake: minActivatedStake,
	})
	return gov, db, nil
}

func RunNode(cmdCtx *cli.Context) error {
	port := cmdCtx.String("port")
	dbPath := cmdCtx.String("db")
	bootstrapPeers := cmdCtx.String("peers")
	electionInterval := cmdCtx.Duration("election-interval")
	minActivatedStake := cmdCtx.Int64("min-activated-stake")

	gov, db, err := openGovernance(dbPath, minActivatedStake)
	if err != nil {
		return err
	}

	// Resolve the address peers reach us on.
	externalIP, err := dpos.DiscoverExternalIP()
	if err != nil {
		externalIP = "0.0.0.0"
	}

	peer := dpos.NewPeerCore(dpos.NewPeerConfig(externalIP, port, []string{}))

	node := dpos.NewNode(gov, peer, electionInterval)

	// Reconnect to peers we knew from last run.
	netstore, err := dpos.LoadDataStore[dpos.NetworkStore](db, "network")
	if err != nil {
		return err
	}
	for _, cached := range netstore.PeerCache {
		node.Peer.Bootstrap([]string{cached.Url})
	}

	// Handle process signals.
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c

		fmt.Println("Shutting down...")
		err := dpos.SaveDataStore(db, "network", dpos.NetworkStore{PeerCache: node.Peer.Peers()})
		if err != nil {
			fmt.Printf("Failed to save peer cache: %s\n", err)
		}
		node.Shutdown()

		os.Exit(1)
	}()

	// Bootstrap the node.
	if bootstrapPeers != "" {
		peerAddresses := []string{}
		// Split the comma-separated list of peer addresses.
		peerlist := strings.Split(bootstrapPeers, ",")
		for _, peerAddress := range peerlist {
			// Validate URL.
			_, err := url.ParseRequestURI(peerAddress)
			if err != nil {
				return fmt.Errorf("Invalid peer address: %s", peerAddress)
			}
			peerAddresses = append(peerAddresses, peerAddress)
		}

		node.Peer.Bootstrap(peerAddresses)
	}

	node.Start()
	select {}
}
