package interpreter

import (
	"context"
	"errors"
	"slices"

	"sandvm/pkg/future"
	"sandvm/pkg/value"
)

var ErrNotSuspended = errors.New("no suspended run to continue")

// Interpreter drives a Run across suspensions. It keeps the journal of every
// resolution handed to it so the run can be replayed elsewhere.
type Interpreter struct {
	eval    *Evaluator
	run     *Run
	journal []Resolution
}

// NewInterpreter creates an Interpreter executing through e
func NewInterpreter(e *Evaluator) *Interpreter {
	return &Interpreter{eval: e}
}

// Evaluator returns the evaluator the interpreter executes through
func (it *Interpreter) Evaluator() *Evaluator {
	return it.eval
}

// Start executes r from its first statement and makes it the current run
func (it *Interpreter) Start(ctx context.Context, r *Run) (value.Value, error) {
	it.run = r
	it.journal = nil
	return it.eval.Run(ctx, r)
}

// Continue re-executes the current run from the top-level statement recorded
// in tok, with resolved standing in for the await at tok.Site. Awaits of that
// statement resolved by earlier continuations are replayed too.
func (it *Interpreter) Continue(ctx context.Context, tok future.Token, resolved value.Value) (value.Value, error) {
	if it.run == nil {
		return value.Nil, ErrNotSuspended
	}

	it.journal = append(it.journal, Resolution{Statement: tok.Statement, Site: tok.Site, Value: resolved})

	var replay []Resolution
	for _, r := range it.journal {
		if r.Statement == tok.Statement {
			replay = append(replay, r)
		}
	}

	it.run.From = tok.Statement
	it.run.Journal = replay
	it.eval.logger.Debug("Continuing", "program", it.run.Program.Name, "token", tok, "replay", len(replay))
	return it.eval.Run(ctx, it.run)
}

// Replay executes r from its first statement, consuming journal in order, and
// makes it the current run.
func (it *Interpreter) Replay(ctx context.Context, r *Run, journal []Resolution) (value.Value, error) {
	it.run = r
	it.journal = slices.Clone(journal)

	r.From = 0
	r.Journal = it.journal
	it.eval.logger.Debug("Replaying", "program", r.Program.Name, "journal", len(journal))
	return it.eval.Run(ctx, r)
}

// Journal returns the resolutions handed to the current run so far
func (it *Interpreter) Journal() []Resolution {
	return slices.Clone(it.journal)
}

// Done forgets the current run
func (it *Interpreter) Done() {
	if it.run != nil {
		it.run.Scope.Release()
	}
	it.run = nil
	it.journal = nil
}
