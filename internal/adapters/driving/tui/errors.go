package tui

import "errors"

// ErrMissingConversationService is returned when the conversation service is not provided.
var ErrMissingConversationService = errors.New("tui: conversation service is required")

// ErrMissingOwner is returned when no conversation owner is set.
var ErrMissingOwner = errors.New("tui: owner is required")
