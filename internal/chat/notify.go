package chat

import "errors"

type userMessager interface {
	UserMessage() string
}

// userMessage picks the server-provided text out of err, or fallback.
func userMessage(err error, fallback string) string {
	var um userMessager
	if errors.As(err, &um) && um.UserMessage() != "" {
		return um.UserMessage()
	}
	return fallback
}

func report(n Notifier, err error, fallback string) {
	if n == nil {
		return
	}
	n.Error(userMessage(err, fallback))
}
