package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keymap struct {
	send key.Binding
	quit key.Binding
}

func newKeymap() keymap {
	return keymap{
		send: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		quit: key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

var defaultKeymap = newKeymap()
