package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"sandvm/internal/config"
	"sandvm/internal/store"
	"sandvm/pkg/color"
	"sandvm/pkg/compiler"
	"sandvm/pkg/snapshot"
	"sandvm/pkg/value"
	"sandvm/pkg/vm"
)

var ErrNoStore = errors.New("no snapshot store configured")

type Runner struct {
	Config     config.Config
	Verbose    bool   // Dump the fragment tree before evaluating
	List       bool   // List stored snapshots instead of evaluating
	SourceFile string // Path to the source file
	Resume     int    // Sequence number of a stored snapshot to restore, 0 for none
	Value      string // Expression the restored await resolves to
	Out        io.Writer
}

// Run evaluates the source file, restores a stored snapshot or lists the store, depending on the options set.
func (r *Runner) Run(ctx context.Context) error {
	if r.Out == nil {
		r.Out = os.Stdout
	}

	var st *store.Store
	if r.Config.Store.Path != "" {
		var err error
		st, err = store.Open(r.Config.Store.Path)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	switch {
	case r.List:
		return r.list(st)
	case r.Resume > 0:
		return r.resume(ctx, st)
	default:
		return r.evaluate(ctx, st)
	}
}

func (r *Runner) newVM(st *store.Store) *vm.VM {
	opts := []vm.Option{
		vm.WithName(r.Config.VM.Name),
		vm.WithMaxSteps(r.Config.VM.MaxSteps),
		vm.WithWriter(r.Out),
		vm.WithLogger(log.Default()),
	}
	if st != nil {
		opts = append(opts, vm.WithSuspendHook(func(snap snapshot.Snapshot) {
			seq, err := st.Put(snap)
			if err != nil {
				log.Warn("Cannot store snapshot", "error", err)
				return
			}
			log.Info("Snapshot stored", "seq", seq, "statement", snap.Token.Statement, "site", snap.Token.Site)
		}))
	}
	return vm.New(opts...)
}

func (r *Runner) evaluate(ctx context.Context, st *store.Store) error {
	log.Info("Processing file", "file", r.SourceFile)

	input, err := os.ReadFile(r.SourceFile)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", r.SourceFile, err)
	}

	machine := r.newVM(st)
	if r.Verbose {
		prog, err := machine.Compiler().Compile(string(input))
		if err != nil {
			return r.failed(err)
		}
		fmt.Fprintln(r.Out, color.GreenText("=== Fragment Tree ==="))
		fmt.Fprint(r.Out, prog.Top.Dump())
		fmt.Fprintln(r.Out, color.GreenText("\n=== Program Output ==="))
	}

	v, err := machine.Eval(ctx, string(input))
	if err != nil {
		return r.failed(err)
	}
	r.result(v)
	return nil
}

func (r *Runner) resume(ctx context.Context, st *store.Store) error {
	if st == nil {
		return ErrNoStore
	}

	snap, err := st.Get(r.Resume)
	if err != nil {
		return err
	}
	resolved, err := r.resolution()
	if err != nil {
		return err
	}
	log.Info("Resuming snapshot", "seq", r.Resume, "name", snap.Name, "value", resolved)

	f := r.newVM(st).Restore(ctx, snap, resolved)
	<-f.Done()
	v, err := f.Result()
	if err != nil {
		return r.failed(err)
	}
	if err := st.Delete(r.Resume); err != nil {
		log.Warn("Cannot delete restored snapshot", "seq", r.Resume, "error", err)
	}
	r.result(v)
	return nil
}

// resolution evaluates Value in a scratch VM. Only persistable values are accepted.
func (r *Runner) resolution() (value.Value, error) {
	if r.Value == "" {
		return value.Nil, nil
	}
	scratch := vm.New(vm.WithName("value"), vm.WithWriter(io.Discard), vm.WithLogger(log.Default()))
	v, err := scratch.Eval(context.Background(), r.Value)
	if err != nil {
		return value.Nil, fmt.Errorf("invalid resume value %q: %w", r.Value, err)
	}
	if _, err := snapshot.FromValue(v); err != nil {
		return value.Nil, fmt.Errorf("invalid resume value %q: %w", r.Value, err)
	}
	return v, nil
}

func (r *Runner) list(st *store.Store) error {
	if st == nil {
		return ErrNoStore
	}
	entries, err := st.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.Out, color.GrayText("No snapshots stored."))
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(r.Out, "%s %s %s %s\n",
			color.CyanText(fmt.Sprintf("%d", e.Seq)),
			color.YellowText(e.Snapshot.Name),
			color.BlueText(e.Snapshot.Token.String()),
			color.GrayText(e.Snapshot.Created.Format("2006-01-02 15:04:05")))
	}
	return nil
}

func (r *Runner) result(v value.Value) {
	if r.Verbose {
		fmt.Fprintln(r.Out, color.GreenText("\n=== Result ==="))
	}
	if !v.IsNil() {
		fmt.Fprintln(r.Out, v.Repr())
	}
}

func (r *Runner) failed(err error) error {
	var cerr *compiler.Error
	if errors.As(err, &cerr) {
		fmt.Fprintln(r.Out, color.BrightRedText("=== Syntax Errors ==="))
		fmt.Fprintln(r.Out, cerr.Pretty())
		return fmt.Errorf("compilation failed with %d errors", len(cerr.Diagnostics))
	}
	return fmt.Errorf("evaluation failed: %w", err)
}
