package runtime

// Reply is one outbound bot message for an identity.
type Reply struct {
	// Text is the rendered message body.
	Text string

	// Options are the literal answers the active step accepts, for
	// presentation layers that render choice keyboards or hints. Empty
	// when the next input is free-form.
	Options []string
}

func textReply(text string) *Reply {
	return &Reply{Text: text}
}

// User-facing texts the interpreter emits outside of catalog templates.
const (
	msgLoginRequired  = "Please type /login to login before using the bot."
	msgNotUnderstood  = "I don't understand what you said."
	msgNotLoggedIn    = "You are not logged in."
	msgSessionExpired = "Your session has expired (CSRF token mismatch). Please type /login to login again."
	msgReset          = "Conversation reset. You can start a new command."
	msgNothingToReset = "No active conversation to reset."
	msgRetriesSpent   = "Too many invalid responses. Conversation reset. You can start a new command."
	msgLostInFlow     = "I'm not sure what to do next. Let's start over."
	msgGenericFailure = "Sorry, something went wrong on my side. Please try again later."

	msgAlreadyLoggedIn = "You are already logged in! You can start using the bot."
	msgLoginOK         = "Login successful! You can now chat with me and use all available commands."
	msgLoginRejected   = "Login failed. Please try again."
	msgLoginUnreached  = "Sorry, I couldn't log you in. Please try again later."
	msgLoggedOut       = "You have been logged out successfully."

	msgVoiceFailed = "Sorry, I couldn't process your voice message. Please try again or send a text message."
)
