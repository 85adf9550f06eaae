// Package app is the application layer on top of a peernode.Node: poll
// tallying, the interactive menu, and a scenario-file runner, grounded
// on original_source/app.py and original_source/blockchain.py's
// get_poll_results.
package app

import "github.com/xytuang/pollchain/chain"

// PollResult is the tally of a single poll as derived by scanning a
// chain: its declared options and the running vote count per option.
type PollResult struct {
	PollID  string
	Name    string
	Options []string
	Votes   map[string]int
}

// Tally scans c in order and reconstructs every poll's current results:
// each create_poll transaction seeds a poll's option set, and each vote
// transaction that names a known poll increments that option's count. A
// vote naming an unknown poll_id is ignored, matching the miner's own
// refusal to ever mine such a vote in the first place.
func Tally(c chain.Chain) map[string]*PollResult {
	results := make(map[string]*PollResult)

	for _, block := range c {
		if len(block.Txns) == 0 {
			continue
		}

		switch data := block.Txns[0].Data.(type) {
		case chain.CreatePoll:
			if _, exists := results[data.PollID]; exists {
				continue
			}
			votes := make(map[string]int, len(data.Options))
			for _, opt := range data.Options {
				votes[opt] = 0
			}
			results[data.PollID] = &PollResult{
				PollID:  data.PollID,
				Name:    data.PollName,
				Options: data.Options,
				Votes:   votes,
			}

		case chain.Vote:
			poll, ok := results[data.PollID]
			if !ok {
				continue
			}
			if _, validOption := poll.Votes[data.Option]; !validOption {
				continue
			}
			poll.Votes[data.Option]++
		}
	}

	return results
}

// FindPoll returns the poll named name, scanning every create_poll
// transaction on the chain in order (original_source/app.py's
// find_poll).
func FindPoll(c chain.Chain, name string) (PollResult, bool) {
	for _, r := range Tally(c) {
		if r.Name == name {
			return *r, true
		}
	}
	return PollResult{}, false
}
