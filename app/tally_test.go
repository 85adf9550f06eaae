package app

import (
	"testing"

	"github.com/xytuang/pollchain/chain"
)

func block(id int64, data chain.Payload) chain.Block {
	return chain.Block{ID: id, Txns: []chain.Transaction{{Data: data}}}
}

func TestTallyCountsVotesPerOption(t *testing.T) {
	c := chain.Chain{
		block(0, chain.CreatePoll{PollID: "p1", PollName: "color", Options: []string{"red", "blue"}}),
		block(1, chain.Vote{PollID: "p1", Option: "red"}),
		block(2, chain.Vote{PollID: "p1", Option: "red"}),
		block(3, chain.Vote{PollID: "p1", Option: "blue"}),
	}

	results := Tally(c)

	poll, ok := results["p1"]
	if !ok {
		t.Fatal("expected poll p1 to be present")
	}
	if poll.Votes["red"] != 2 {
		t.Fatalf("expected 2 votes for red, got %d", poll.Votes["red"])
	}
	if poll.Votes["blue"] != 1 {
		t.Fatalf("expected 1 vote for blue, got %d", poll.Votes["blue"])
	}
}

func TestTallyIgnoresVoteForUnknownPoll(t *testing.T) {
	c := chain.Chain{
		block(0, chain.CreatePoll{PollID: "p1", PollName: "color", Options: []string{"red"}}),
		block(1, chain.Vote{PollID: "does-not-exist", Option: "red"}),
	}

	results := Tally(c)
	if len(results) != 1 {
		t.Fatalf("expected exactly one poll, got %d", len(results))
	}
	if results["p1"].Votes["red"] != 0 {
		t.Fatalf("expected the stray vote to be ignored, got %d", results["p1"].Votes["red"])
	}
}

func TestTallyIgnoresVoteForUnknownOption(t *testing.T) {
	c := chain.Chain{
		block(0, chain.CreatePoll{PollID: "p1", PollName: "color", Options: []string{"red", "blue"}}),
		block(1, chain.Vote{PollID: "p1", Option: "green"}),
	}

	results := Tally(c)
	if results["p1"].Votes["green"] != 0 {
		t.Fatalf("expected vote for an option not on the ballot to be ignored, got count %d", results["p1"].Votes["green"])
	}
	if _, exists := results["p1"].Votes["green"]; exists && results["p1"].Votes["green"] != 0 {
		t.Fatal("unknown option should not accumulate votes")
	}
}

func TestFindPollByName(t *testing.T) {
	c := chain.Chain{
		block(0, chain.CreatePoll{PollID: "p1", PollName: "color", Options: []string{"red"}}),
	}

	result, ok := FindPoll(c, "color")
	if !ok {
		t.Fatal("expected to find poll by name")
	}
	if result.PollID != "p1" {
		t.Fatalf("expected poll id p1, got %s", result.PollID)
	}

	if _, ok := FindPoll(c, "nonexistent"); ok {
		t.Fatal("expected no match for a poll name that was never created")
	}
}
