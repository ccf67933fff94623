package cmd

import "fmt"

// commandError carries a process exit code alongside the failure. Execute
// unwraps it so scripted callers can branch on the foundry code.
type commandError struct {
	code int
	msg  string
	err  error
}

func (e *commandError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *commandError) Unwrap() error { return e.err }

func exitError[C ~int](code C, msg string, err error) error {
	return &commandError{code: int(code), msg: msg, err: err}
}
