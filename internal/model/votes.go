package model

// VoteTally is the aggregate vote state of a dispute. The invariant is
// Upvotes == count(UserVotes == up) and likewise for Downvotes; a user
// has at most one entry.
type VoteTally struct {
	Upvotes   int                  `json:"upvotes"`
	Downvotes int                  `json:"downvotes"`
	UserVotes map[string]VoteValue `json:"user_votes"`
}

// VoteDelta describes the per-user change Apply made to a tally, in a
// form the store can replay as an atomic read-modify-write: counter
// increments plus a single map-entry upsert or delete.
type VoteDelta struct {
	UserID    string
	UpDelta   int
	DownDelta int
	// NewVote is the user's vote after the change; nil means the entry
	// was removed (a toggle-off).
	NewVote *VoteValue
}

// Apply applies one user's vote with idempotent toggle semantics:
// repeating the current vote retracts it, switching replaces it.
// The tally is mutated in place and the resulting delta returned.
func (t *VoteTally) Apply(userID string, vote VoteValue) VoteDelta {
	if t.UserVotes == nil {
		t.UserVotes = make(map[string]VoteValue)
	}

	delta := VoteDelta{UserID: userID}
	prev, voted := t.UserVotes[userID]

	switch {
	case voted && prev == vote:
		// Toggle off.
		delete(t.UserVotes, userID)
		if vote == VoteUp {
			delta.UpDelta = -1
		} else {
			delta.DownDelta = -1
		}
	case voted:
		// Switch sides.
		t.UserVotes[userID] = vote
		if vote == VoteUp {
			delta.UpDelta, delta.DownDelta = 1, -1
		} else {
			delta.UpDelta, delta.DownDelta = -1, 1
		}
		v := vote
		delta.NewVote = &v
	default:
		t.UserVotes[userID] = vote
		if vote == VoteUp {
			delta.UpDelta = 1
		} else {
			delta.DownDelta = 1
		}
		v := vote
		delta.NewVote = &v
	}

	t.Upvotes += delta.UpDelta
	t.Downvotes += delta.DownDelta
	return delta
}
