package vm

import (
	"context"
	"fmt"
	"time"

	"sandvm/pkg/future"
	"sandvm/pkg/interpreter"
	"sandvm/pkg/snapshot"
	"sandvm/pkg/value"
)

// Snapshot captures the suspended evaluation so it can be restored in another VM.
func (vm *VM) Snapshot() (snapshot.Snapshot, error) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.state != Suspended || vm.program == nil {
		return snapshot.Snapshot{}, ErrNotSuspended
	}

	resolutions := vm.interp.Journal()
	journal := make([]snapshot.Entry, len(resolutions))
	for i, r := range resolutions {
		p, err := snapshot.FromValue(r.Value)
		if err != nil {
			return snapshot.Snapshot{}, fmt.Errorf("journal entry %d: %w", i, err)
		}
		journal[i] = snapshot.Entry{Statement: r.Statement, Site: r.Site, Value: p}
	}

	return snapshot.Snapshot{
		Name:    vm.name,
		Source:  vm.program.Source,
		Token:   vm.token,
		Journal: journal,
		Created: time.Now().UTC(),
	}, nil
}

// Restore recompiles the snapshot's source and replays it from the start,
// consuming the journal and then resolved for the await the snapshot was
// taken at. The returned future behaves as the one Start returns.
func (vm *VM) Restore(ctx context.Context, snap snapshot.Snapshot, resolved value.Value) *future.Future[value.Value] {
	if err := vm.acquire(); err != nil {
		return future.RejectedWith[value.Value](err)
	}

	prog, err := vm.compiler.Compile(snap.Source)
	if err != nil {
		vm.finish()
		return future.RejectedWith[value.Value](fmt.Errorf("restore %s: %w", snap.Name, err))
	}

	journal := make([]interpreter.Resolution, 0, len(snap.Journal)+1)
	for _, e := range snap.Journal {
		journal = append(journal, interpreter.Resolution{Statement: e.Statement, Site: e.Site, Value: e.Value.Value()})
	}
	journal = append(journal, interpreter.Resolution{Statement: snap.Token.Statement, Site: snap.Token.Site, Value: resolved})

	vm.logger.Debug("Restoring", "vm", vm.name, "snapshot", snap.Name, "token", snap.Token, "journal", len(journal))

	run := &interpreter.Run{Program: prog, Scope: vm.root}
	return vm.drive(ctx, prog, func() (value.Value, error) {
		return vm.interp.Replay(ctx, run, journal)
	})
}
