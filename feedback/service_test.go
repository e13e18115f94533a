package feedback

import "testing"

func TestNextVoteTogglesSameVoteOff(t *testing.T) {
	if got := nextVote(Upvoted, Upvoted); got != NotVoted {
		t.Fatalf("expected repeating a vote to clear it, got %q", got)
	}
	if got := nextVote(Downvoted, Downvoted); got != NotVoted {
		t.Fatalf("expected repeating a vote to clear it, got %q", got)
	}
}

func TestNextVoteReplacesDifferentVote(t *testing.T) {
	if got := nextVote(NotVoted, Upvoted); got != Upvoted {
		t.Fatalf("expected a fresh vote to apply, got %q", got)
	}
	if got := nextVote(Upvoted, Downvoted); got != Downvoted {
		t.Fatalf("expected switching votes to apply the new one, got %q", got)
	}
	if got := nextVote(Downvoted, Upvoted); got != Upvoted {
		t.Fatalf("expected switching votes to apply the new one, got %q", got)
	}
}
