// Command peer runs a single voting-network participant: it joins the
// directory named on the command line, mines poll/vote transactions
// into its chain, and serves other peers over the raw framed protocol
// in package wire.
package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xytuang/pollchain/app"
	"github.com/xytuang/pollchain/peernode"
	"github.com/xytuang/pollchain/statusapi"
)

const flagDifficulty = "difficulty"
const flagConfig = "config"
const flagScenario = "scenario"
const flagStatusAddr = "status-addr"
const flagStatusSSLEmail = "status-ssl-email"
const flagStatusDomain = "status-domain"

func main() {
	var peerCmd = &cobra.Command{
		Use:   "peer <listening_port> <directory_host> <directory_port>",
		Short: "Run a poll-voting blockchain peer",
		Args:  cobra.ExactArgs(3),
		RunE:  runPeer,
	}

	peerCmd.Flags().Int(flagDifficulty, peernode.DefaultDifficulty, "Number of leading hex zeros a block hash must have")
	peerCmd.Flags().String(flagConfig, "", "Path to a JSON tamper/broadcast config file")
	peerCmd.Flags().String(flagScenario, "", "Path to a CREATE/VOTE/SLEEP scenario file to run non-interactively")
	peerCmd.Flags().String(flagStatusAddr, "", "If set, serve a read-only status HTTP API on this address (disabled by default)")
	peerCmd.Flags().String(flagStatusDomain, "", "Domain name to request a managed TLS certificate for on the status API")
	peerCmd.Flags().String(flagStatusSSLEmail, "", "Contact email for managed TLS certificate issuance on the status API")

	if err := peerCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runPeer(cmd *cobra.Command, args []string) error {
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid listening_port %q: %w", args[0], err)
	}

	directoryHost := args[1]

	directoryPort, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("invalid directory_port %q: %w", args[2], err)
	}

	difficulty, _ := cmd.Flags().GetInt(flagDifficulty)
	configPath, _ := cmd.Flags().GetString(flagConfig)
	scenarioPath, _ := cmd.Flags().GetString(flagScenario)
	statusAddr, _ := cmd.Flags().GetString(flagStatusAddr)
	statusDomain, _ := cmd.Flags().GetString(flagStatusDomain)
	statusSSLEmail, _ := cmd.Flags().GetString(flagStatusSSLEmail)

	cfg := peernode.DefaultConfig()
	if configPath != "" {
		cfg, err = peernode.LoadConfig(configPath)
		if err != nil {
			return err
		}
	}

	n, err := peernode.New(peernode.Options{
		IP:            "127.0.0.1",
		Port:          port,
		DirectoryHost: directoryHost,
		DirectoryPort: directoryPort,
		Difficulty:    difficulty,
		Config:        cfg,
	})
	if err != nil {
		return err
	}

	if err := n.Start(); err != nil {
		return err
	}

	if statusAddr != "" {
		srv := statusapi.New(n)
		go func() {
			var err error
			if statusDomain != "" {
				err = srv.StartTLS(statusAddr, statusDomain, statusSSLEmail)
			} else {
				err = srv.Start(statusAddr)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "status api stopped: %v\n", err)
			}
		}()
	}

	if scenarioPath != "" {
		if err := app.RunScenario(n, scenarioPath, os.Stdout); err != nil {
			n.Shutdown()
			return err
		}
		n.Shutdown()
		return nil
	}

	app.Menu(n, os.Stdin, os.Stdout)
	return nil
}
