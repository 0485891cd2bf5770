package dispatch

import (
	"github.com/ethereum/go-ethereum/common"

	"ca-send/pkg/registry"
)

// Notification is a display-ready toast payload; rendering is up to the caller
type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Action      *Action `json:"action,omitempty"`
}

// Action is an optional link attached to a notification
type Action struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Notifier receives notifications for successful submissions
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}

// SuccessNotification builds the payload shown once a transfer is submitted.
// The explorer action is attached only when the chain's explorer is known.
func SuccessNotification(chainID int64, hash common.Hash) Notification {
	n := Notification{
		Title:       "Success",
		Description: "Transaction submitted!",
	}
	if url, ok := registry.TxURL(chainID, hash.Hex()); ok {
		n.Action = &Action{Label: "Show in explorer", URL: url}
	}
	return n
}
