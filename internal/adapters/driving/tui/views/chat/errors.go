package chat

import "errors"

// ErrNoConversationService indicates that no conversation service was provided.
var ErrNoConversationService = errors.New("conversation service is required")
