// Command directory runs the peer directory (tracker): the small
// stateful service peers register with so they can discover each other.
package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/xytuang/pollchain/tracker"
)

func main() {
	var directoryCmd = &cobra.Command{
		Use:   "directory <directory_port>",
		Short: "Run the peer directory service",
		Args:  cobra.ExactArgs(1),
		RunE:  runDirectory,
	}

	if err := directoryCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDirectory(cmd *cobra.Command, args []string) error {
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid directory_port %q: %w", args[0], err)
	}

	svc := tracker.New(log.New(os.Stdout, "", log.LstdFlags))

	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		close(done)
	}()

	return svc.Run(done, port)
}
