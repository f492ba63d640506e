// internal/game/errors.go
package game

import "fmt"

// ErrorKind classifies client-visible command failures.
type ErrorKind int

const (
	// ErrorProtocol covers malformed frames, unknown commands, bad arity and
	// unparseable card tokens.
	ErrorProtocol ErrorKind = iota
	// ErrorPrecondition covers wrong game status, wrong turn and unknown players.
	ErrorPrecondition
	// ErrorRule covers moves rejected by a game's own rules.
	ErrorRule
	// ErrorPersistence covers unreadable saved entries. Never sent to clients.
	ErrorPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorProtocol:
		return "protocol"
	case ErrorPrecondition:
		return "precondition"
	case ErrorRule:
		return "rule"
	case ErrorPersistence:
		return "persistence"
	}
	return "unknown"
}

// CmdError is a recoverable, client-visible command failure. Command is set
// only when the error was raised by a dispatched handler; errors detected
// during parsing or precondition checks carry no command context.
type CmdError struct {
	Kind    ErrorKind
	Message string
	Command string
}

func (e *CmdError) Error() string {
	return e.Message
}

// Frame renders the outbound error frame: "error|message[|command]".
func (e *CmdError) Frame() string {
	args := []any{EventError, e.Message}
	if e.Command != "" {
		args = append(args, e.Command)
	}
	return formatFrame(args)
}

func newProtocolError(format string, args ...any) *CmdError {
	return &CmdError{Kind: ErrorProtocol, Message: fmt.Sprintf(format, args...)}
}

func newPreconditionError(format string, args ...any) *CmdError {
	return &CmdError{Kind: ErrorPrecondition, Message: fmt.Sprintf(format, args...)}
}

func newRuleError(format string, args ...any) *CmdError {
	return &CmdError{Kind: ErrorRule, Message: fmt.Sprintf(format, args...)}
}
