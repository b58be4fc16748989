package main

import (
	"errors"
	"os"

	"github.com/loykin/apismoke/internal/common"
)

const exitFailed = 1

// ExitHandler terminates the process; tests replace it to observe exit codes.
type ExitHandler interface {
	Exit(code int)
	LogFatalError(err error, msg string, keyvals ...any)
}

// DefaultExitHandler logs through the shared logger and calls os.Exit.
type DefaultExitHandler struct {
	logger *common.Logger
}

func NewDefaultExitHandler() *DefaultExitHandler {
	return &DefaultExitHandler{logger: common.GetLogger().WithComponent("main")}
}

func (h *DefaultExitHandler) Exit(code int) {
	os.Exit(code)
}

func (h *DefaultExitHandler) LogFatalError(err error, msg string, keyvals ...any) {
	h.logger.Error(msg, append([]any{"error", err}, keyvals...)...)
	h.Exit(exitFailed)
}

var exitHandler ExitHandler = NewDefaultExitHandler()

// exitFor maps a command error to the process exit. A failed scenario already
// printed its report, so only other errors are logged.
func exitFor(h ExitHandler, err error) {
	switch {
	case err == nil:
		return
	case errors.Is(err, errScenarioFailed):
		h.Exit(exitFailed)
	default:
		h.LogFatalError(err, "command execution failed")
	}
}
