package duel

import "quickdraw/internal/gamedata"

type joinCmd struct {
	ConnID   string
	Username string
	Reply    chan joinReply
}

type joinReply struct {
	Result JoinResult
	Err    error
}

// JoinResult identifies the seat a connection was given.
type JoinResult struct {
	PlayerID string
	Username string
	Room     string
}

type leaveCmd struct {
	ConnID string
}

type readyCmd struct {
	ConnID string
}

type shootCmd struct {
	ConnID string
}

type snapshotCmd struct {
	Reply chan gamedata.Snapshot
}
