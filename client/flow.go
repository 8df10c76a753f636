package client

import (
	"context"
	"fmt"
	"sync"
)

// FlowState is the phase a verification flow is in
type FlowState string

const (
	// StateIdle is a flow that has not started
	StateIdle FlowState = "idle"
	// StateSending means a code request is in flight
	StateSending FlowState = "sending"
	// StateSent means a code was requested and the flow is waiting for the
	// user to type it in
	StateSent FlowState = "sent"
	// StateVerifying means a code submission is in flight
	StateVerifying FlowState = "verifying"
	// StateDone is a successfully completed flow
	StateDone FlowState = "done"
	// StateError is a failed flow; see Err
	StateError FlowState = "error"
)

// Flow tracks one phone verification from code request to credential. It is
// safe for concurrent use; UI code typically polls State while requests run.
type Flow struct {
	client *Client

	mu     sync.Mutex
	state  FlowState
	phone  string
	result *VerifyResult
	err    error
}

// NewFlow creates an idle flow using the given client
func NewFlow(client *Client) *Flow {
	return &Flow{client: client, state: StateIdle}
}

// State returns the current flow state
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Err returns the error that moved the flow into StateError, if any
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Result returns the verification result once the flow is done
func (f *Flow) Result() *VerifyResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

// Start requests a code for the phone. Valid from StateIdle and, to let the
// user retry after a failure, from StateError.
func (f *Flow) Start(ctx context.Context, phone string) error {
	f.mu.Lock()
	if f.state != StateIdle && f.state != StateError {
		state := f.state
		f.mu.Unlock()
		return fmt.Errorf("cannot start verification from state %q", state)
	}
	f.state = StateSending
	f.err = nil
	f.mu.Unlock()

	if err := f.client.Start(ctx, phone); err != nil {
		f.fail(err)
		return err
	}

	f.mu.Lock()
	f.state = StateSent
	f.phone = phone
	f.mu.Unlock()
	return nil
}

// Submit verifies the code the user entered. Valid from StateSent and, so
// that a mistyped code can be corrected, from StateError when a phone is
// already on record.
func (f *Flow) Submit(ctx context.Context, code string) (*VerifyResult, error) {
	f.mu.Lock()
	if f.phone == "" || (f.state != StateSent && f.state != StateError) {
		state := f.state
		f.mu.Unlock()
		return nil, fmt.Errorf("cannot submit code from state %q", state)
	}
	phone := f.phone
	f.state = StateVerifying
	f.err = nil
	f.mu.Unlock()

	result, err := f.client.Verify(ctx, phone, code)
	if err != nil {
		f.fail(err)
		return nil, err
	}

	f.mu.Lock()
	f.state = StateDone
	f.result = result
	f.mu.Unlock()
	return result, nil
}

// Reset returns the flow to StateIdle, dropping any result or error
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateIdle
	f.phone = ""
	f.result = nil
	f.err = nil
}

func (f *Flow) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateError
	f.err = err
}
