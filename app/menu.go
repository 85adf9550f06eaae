package app

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/xytuang/pollchain/chain"
	"github.com/xytuang/pollchain/peernode"
)

// Menu drives the interactive five-option terminal loop of
// original_source/app.py's main(): create a poll, cast a vote, view one
// poll's results, view every poll, or shut the peer down. It returns
// once the user picks "shut down" or in reaches EOF on in.
func Menu(n *peernode.Node, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, "\n1) create poll\n2) vote\n3) poll results\n4) all polls\n5) shut down\n> ")

		if !scanner.Scan() {
			return
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			createPollPrompt(n, scanner, out)
		case "2":
			votePrompt(n, scanner, out)
		case "3":
			pollResultsPrompt(n, scanner, out)
		case "4":
			printAllPolls(n, out)
		case "5":
			n.Shutdown()
			return
		default:
			fmt.Fprintln(out, "unrecognized option")
		}
	}
}

func prompt(scanner *bufio.Scanner, out io.Writer, label string) string {
	fmt.Fprintf(out, "%s: ", label)
	if !scanner.Scan() {
		return ""
	}
	return strings.TrimSpace(scanner.Text())
}

func createPollPrompt(n *peernode.Node, scanner *bufio.Scanner, out io.Writer) {
	name := prompt(scanner, out, "poll name")
	optionsLine := prompt(scanner, out, "comma-separated options")

	var options []string
	for _, opt := range strings.Split(optionsLine, ",") {
		opt = strings.TrimSpace(opt)
		if opt != "" {
			options = append(options, opt)
		}
	}

	if name == "" || len(options) == 0 {
		fmt.Fprintln(out, "poll name and at least one option are required")
		return
	}

	n.SubmitTransaction(chain.CreatePoll{
		PollID:   uuid.New().String(),
		PollName: name,
		Options:  options,
	})

	fmt.Fprintln(out, "poll queued for mining")
}

func votePrompt(n *peernode.Node, scanner *bufio.Scanner, out io.Writer) {
	pollID := prompt(scanner, out, "poll id")
	option := prompt(scanner, out, "option")

	if pollID == "" || option == "" {
		fmt.Fprintln(out, "poll id and option are required")
		return
	}

	n.SubmitTransaction(chain.Vote{PollID: pollID, Option: option})
	fmt.Fprintln(out, "vote queued for mining")
}

func pollResultsPrompt(n *peernode.Node, scanner *bufio.Scanner, out io.Writer) {
	name := prompt(scanner, out, "poll name")

	result, ok := FindPoll(n.SnapshotChain(), name)
	if !ok {
		fmt.Fprintln(out, "no such poll")
		return
	}

	printPollResult(out, result)
}

func printAllPolls(n *peernode.Node, out io.Writer) {
	results := Tally(n.SnapshotChain())
	if len(results) == 0 {
		fmt.Fprintln(out, "no polls yet")
		return
	}
	for _, r := range results {
		printPollResult(out, *r)
	}
}

func printPollResult(out io.Writer, r PollResult) {
	fmt.Fprintf(out, "%s (%s)\n", r.Name, r.PollID)
	for _, opt := range r.Options {
		fmt.Fprintf(out, "  %s: %d\n", opt, r.Votes[opt])
	}
}
