package main

import (
	"log"
	"os"

	"github.com/liamzebedee/tinydpos-go/cli/cmd"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:                 "tinydpos",
		Usage:                "stake-weighted producer voting for a tiny delegated proof-of-stake network",
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:   "node",
				Usage:  "runs the tinydpos governance node",
				Action: cmd.RunNode,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "port",
						Usage: "The port to run the node on",
						Value: "8121",
					},
					&cli.StringFlag{
						Name:  "db",
						Usage: "The path to the tinydpos database",
						Value: "tinydpos.db",
					},
					&cli.StringFlag{
						Name:  "peers",
						Usage: "Comma-separated list of bootstrap peer URLs",
					},
					&cli.DurationFlag{
						Name:  "election-interval",
						Usage: "How often the node recomputes the producer schedule",
						Value: cmd.DefaultElectionInterval,
					},
					&cli.Int64Flag{
						Name:  "min-activated-stake",
						Usage: "Stake threshold at which the network activates",
						Value: cmd.DefaultMinActivatedStake,
					},
				},
			},
			{
				Name:   "explorer",
				Usage:  "runs the governance explorer",
				Action: cmd.RunExplorer,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "The port to run the explorer on",
						Value: 8122,
					},
					&cli.StringFlag{
						Name:  "db",
						Usage: "The path to the tinydpos database",
						Value: "tinydpos.db",
					},
					&cli.Int64Flag{
						Name:  "min-activated-stake",
						Usage: "Stake threshold at which the network activates",
						Value: cmd.DefaultMinActivatedStake,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
