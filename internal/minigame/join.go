package minigame

import (
	"fmt"
)

// JoinStatus is the outcome of a join attempt.
type JoinStatus int

const (
	JoinSuccess JoinStatus = iota
	JoinAlreadyInRound
	JoinRoundFull
	JoinInternalError
	JoinPlayerUnavailable
)

var joinStatusNames = [...]string{
	JoinSuccess:           "success",
	JoinAlreadyInRound:    "already_in_round",
	JoinRoundFull:         "round_full",
	JoinInternalError:     "internal_error",
	JoinPlayerUnavailable: "player_unavailable",
}

func (s JoinStatus) String() string {
	if s < 0 || int(s) >= len(joinStatusNames) {
		return fmt.Sprintf("JoinStatus(%d)", int(s))
	}
	return joinStatusNames[s]
}

// JoinResult is returned by AddChallenger. Expected refusals such as a full
// round are results, not errors; check Status before using Challenger.
type JoinResult struct {
	status     JoinStatus
	challenger *Challenger
	cause      error
}

func joinSucceeded(c *Challenger) JoinResult {
	return JoinResult{status: JoinSuccess, challenger: c}
}

func joinRefused(status JoinStatus, cause error) JoinResult {
	return JoinResult{status: status, cause: cause}
}

func (j JoinResult) Status() JoinStatus { return j.status }

// OK reports whether the join succeeded.
func (j JoinResult) OK() bool { return j.status == JoinSuccess }

// Challenger returns the new challenger. It fails with ErrInvalidState
// unless the join succeeded.
func (j JoinResult) Challenger() (*Challenger, error) {
	if j.status != JoinSuccess {
		return nil, stateError("join result is %s", j.status)
	}
	return j.challenger, nil
}

// Err describes why the join was refused. It is nil on success.
func (j JoinResult) Err() error {
	return j.cause
}

func (j JoinResult) String() string {
	if j.cause != nil {
		return j.status.String() + ": " + j.cause.Error()
	}
	return j.status.String()
}
