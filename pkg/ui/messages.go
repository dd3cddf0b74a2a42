package ui

import "github.com/theapemachine/agentdeck/pkg/stores"

type replyMsg struct{ events []*stores.Event }
type errorMsg struct{ err error }
