package response

import "net/http"

// Msg is the body of every error response and of bodiless successes.
type Msg struct {
	Message string `json:"message"`
}

// Error builds the body for status; customMsg overrides the default text.
func Error(status int, customMsg string) Msg {
	msg := customMsg
	if msg == "" {
		msg = CodeMsgMap[status]
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return Msg{Message: msg}
}

func Message(msg string) Msg { return Msg{Message: msg} }
