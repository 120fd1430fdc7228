package lock

import (
	"strings"

	"github.com/smartdoorlock/core/internal/models"
)

// Server -> device commands.
const (
	CmdCards   = "CARDS"
	CmdLock    = "LOCK"
	CmdUnlock  = "UNLOCK"
	CmdAddCard = "ADD_CARD"
)

// Device -> server events.
const (
	EventCardAdded       = "CARD_ADDED"
	EventLocked          = "LOCKED"
	EventUnlocked        = "UNLOCKED"
	EventGetDoorLock     = "GET_DOOR_LOCK"
	EventScanCardTimeout = "SCAN_CARD_TIMEOUT"
)

const (
	notifyTitle      = "Door Opened"
	notifyBodyPrefix = "Door opened by "
)

type frame struct {
	name string
	arg  string
}

func parseFrame(text string) frame {
	name, arg, _ := strings.Cut(text, " ")
	return frame{name: name, arg: strings.TrimSpace(arg)}
}

// word returns the first space-delimited token of the argument. Card ids
// never contain spaces; the CARDS command is space-joined.
func (f frame) word() string {
	w, _, _ := strings.Cut(f.arg, " ")
	return w
}

// cardsCommand keeps the separator even for an empty list so the device
// clears every card it holds.
func cardsCommand(flat string) string {
	return CmdCards + " " + strings.TrimSpace(flat)
}

func lockCommand(locked bool) string {
	if locked {
		return CmdLock
	}
	return CmdUnlock
}

// doorLockReply answers GET_DOOR_LOCK; type echoes the request for correlation.
type doorLockReply struct {
	Type string            `json:"type"`
	Data models.DoorStatus `json:"data"`
}

// tokenHint is the loggable prefix of a session token.
func tokenHint(token string) string {
	if len(token) <= 4 {
		return token
	}
	return token[:4] + "..."
}
