package chat

// Status is the connectivity state of the client.
type Status string

const (
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// User-facing errors.
const (
	ConnectionErrorMessage   = "Unable to connect to the chat server. Please check your internet connection."
	LoadMessagesErrorMessage = "Failed to load messages. Please try refreshing the page."
)
