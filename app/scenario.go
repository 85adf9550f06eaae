package app

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/xytuang/pollchain/chain"
	"github.com/xytuang/pollchain/peernode"
)

// RunScenario replays a scenario file against n, one line at a time, in
// the format read by original_source/app.py's parse_sim_file:
//
//	CREATE <poll name> <option> <option> ...
//	VOTE <poll name> <option>
//	SLEEP <seconds>
//
// Unknown verbs are ignored with a warning rather than aborting the run
// (spec.md §6).
func RunScenario(n *peernode.Node, path string, out *os.File) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening scenario file %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if err := runScenarioLine(n, line, out); err != nil {
			return fmt.Errorf("scenario line %d (%q): %w", lineNum, line, err)
		}
	}

	return scanner.Err()
}

func runScenarioLine(n *peernode.Node, line string, out *os.File) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	switch strings.ToUpper(fields[0]) {
	case "CREATE":
		if len(fields) < 3 {
			return fmt.Errorf("CREATE requires a name and at least one option")
		}
		name := fields[1]
		options := fields[2:]

		pollID := uuid.New().String()
		n.SubmitTransaction(chain.CreatePoll{PollID: pollID, PollName: name, Options: options})
		fmt.Fprintf(out, "created poll %q as %s\n", name, pollID)

	case "VOTE":
		if len(fields) < 3 {
			return fmt.Errorf("VOTE requires a poll name and an option")
		}
		name := fields[1]
		option := fields[2]

		poll, ok := FindPoll(n.SnapshotChain(), name)
		if !ok {
			fmt.Fprintf(out, "warning: no such poll %q, vote dropped\n", name)
			return nil
		}

		n.SubmitTransaction(chain.Vote{PollID: poll.PollID, Option: option})
		fmt.Fprintf(out, "voted %q on poll %q\n", option, name)

	case "SLEEP":
		if len(fields) < 2 {
			return fmt.Errorf("SLEEP requires a duration in seconds")
		}
		secs, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return fmt.Errorf("malformed SLEEP duration: %w", err)
		}
		time.Sleep(time.Duration(secs * float64(time.Second)))

	default:
		fmt.Fprintf(out, "warning: unrecognized scenario verb %q, ignored\n", fields[0])
	}

	return nil
}
