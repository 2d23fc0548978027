package harness

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/quiltdb/quilt/internal/query"
	"github.com/quiltdb/quilt/internal/record"
	"github.com/quiltdb/quilt/internal/replica"
	"github.com/quiltdb/quilt/internal/store"
	"github.com/quiltdb/quilt/internal/todo"
	"github.com/quiltdb/quilt/internal/txn"
)

// Step action names.
const (
	ActionCreateList   = "create_list"
	ActionAddItem      = "add_item"
	ActionSetDone      = "set_done"
	ActionIsSharable   = "is_sharable"
	ActionMakeSharable = "make_sharable"
	ActionMakePrivate  = "make_private"
	ActionShareWith    = "share_with"
	ActionUnshareWith  = "unshare_with"
	ActionDeleteList   = "delete_list"
	ActionSync         = "sync"
)

// runner holds the live replicas and services for one scenario
// execution.
type runner struct {
	reps map[string]*replica.Replica
	svcs map[string]*todo.Service
	vars map[string]string
}

// Run executes a scenario against fresh replicas in a temp directory
// and returns the result. Execution errors that the scenario did not
// expect become assertion failures on the result, not Go errors; a
// non-nil error means the scenario itself could not be run at all.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	dir, err := os.MkdirTemp("", "quilt-harness-*")
	if err != nil {
		return nil, fmt.Errorf("harness temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	r := &runner{
		reps: make(map[string]*replica.Replica, len(scenario.Replicas)),
		svcs: make(map[string]*todo.Service, len(scenario.Replicas)),
		vars: make(map[string]string),
	}
	defer func() {
		for _, rep := range r.reps {
			rep.Close()
		}
	}()

	// Pin each replica's id to its scenario name. Replica ids
	// tie-break replay order, so golden output depends on them being
	// stable across runs.
	for _, decl := range scenario.Replicas {
		path := filepath.Join(dir, decl.Name+".db")
		s, err := store.Open(path)
		if err != nil {
			return nil, fmt.Errorf("replica %s: %w", decl.Name, err)
		}
		if err := s.SetMeta(ctx, store.MetaReplicaID, decl.Name); err != nil {
			s.Close()
			return nil, fmt.Errorf("replica %s: %w", decl.Name, err)
		}
		if err := s.Close(); err != nil {
			return nil, fmt.Errorf("replica %s: %w", decl.Name, err)
		}

		rep, err := replica.Open(ctx, path, decl.User, "")
		if err != nil {
			return nil, fmt.Errorf("replica %s: %w", decl.Name, err)
		}
		svc, err := todo.NewService(txn.NewCoordinator(rep),
			todo.Session{UserID: decl.User},
			&seqIDs{prefix: decl.Name},
			zerolog.Nop())
		if err != nil {
			rep.Close()
			return nil, fmt.Errorf("replica %s: %w", decl.Name, err)
		}
		r.reps[decl.Name] = rep
		r.svcs[decl.Name] = svc
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := r.runStep(ctx, result, step); err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, step.Action, err))
			break
		}
	}

	for _, decl := range scenario.Replicas {
		for _, v := range CheckInvariants(ctx, r.reps[decl.Name]) {
			result.AddError(fmt.Sprintf("replica %s: %s", decl.Name, v))
		}
	}

	r.applyAssertions(ctx, result, scenario)
	if err := r.snapshot(ctx, result, scenario); err != nil {
		return nil, err
	}
	return result, nil
}

// runStep executes one step and appends it to the trace. A failing
// action is an error unless the step expected one; an action that
// succeeds despite expect_error is.
func (r *runner) runStep(ctx context.Context, result *Result, step Step) error {
	args := resolveMap(step.Args, r.vars)
	ev := TraceEvent{Replica: step.Replica, Action: step.Action, Args: args}

	res, err := r.invoke(ctx, step, args)
	switch {
	case err != nil && !step.ExpectError:
		return err
	case err != nil:
		ev.Error = err.Error()
	case step.ExpectError:
		return fmt.Errorf("expected an error, got none")
	default:
		ev.Result = res
	}

	if step.SaveID != "" {
		id, ok := res.(string)
		if !ok {
			return fmt.Errorf("save_id on an action that returns no id")
		}
		r.vars[step.SaveID] = id
	}

	result.Trace = append(result.Trace, ev)
	return nil
}

func (r *runner) invoke(ctx context.Context, step Step, args map[string]any) (any, error) {
	if step.Action == ActionSync {
		return nil, r.sync(ctx, args)
	}
	svc, ok := r.svcs[step.Replica]
	if !ok {
		return nil, fmt.Errorf("unknown replica %q", step.Replica)
	}

	switch step.Action {
	case ActionCreateList:
		return svc.CreateList(ctx, stringArg(args, "title"))
	case ActionAddItem:
		return svc.AddItem(ctx, stringArg(args, "list"), stringArg(args, "title"))
	case ActionSetDone:
		return nil, svc.SetDone(ctx, stringArg(args, "item"), boolArg(args, "done"))
	case ActionIsSharable:
		return svc.IsSharable(ctx, stringArg(args, "list"))
	case ActionMakeSharable:
		return svc.MakeSharable(ctx, stringArg(args, "list"))
	case ActionMakePrivate:
		return nil, svc.MakePrivate(ctx, stringArg(args, "list"))
	case ActionShareWith:
		return nil, svc.ShareWith(ctx, stringArg(args, "list"),
			stringArg(args, "name"), stringArg(args, "email"), boolArg(args, "send_invite"))
	case ActionUnshareWith:
		return nil, svc.UnshareWith(ctx, stringArg(args, "list"), stringArg(args, "email"))
	case ActionDeleteList:
		return nil, svc.DeleteList(ctx, stringArg(args, "list"))
	default:
		return nil, fmt.Errorf("unknown action %q", step.Action)
	}
}

// sync merges from->to, or both ways when the args name "between".
func (r *runner) sync(ctx context.Context, args map[string]any) error {
	if between, ok := args["between"].([]any); ok {
		if len(between) != 2 {
			return fmt.Errorf("sync between wants exactly two replicas")
		}
		a, errA := r.rep(fmt.Sprint(between[0]))
		b, errB := r.rep(fmt.Sprint(between[1]))
		if errA != nil {
			return errA
		}
		if errB != nil {
			return errB
		}
		return replica.Sync(ctx, a, b, zerolog.Nop())
	}

	from, err := r.rep(stringArg(args, "from"))
	if err != nil {
		return err
	}
	to, err := r.rep(stringArg(args, "to"))
	if err != nil {
		return err
	}
	_, err = to.Merge(ctx, from, zerolog.Nop())
	return err
}

func (r *runner) rep(name string) (*replica.Replica, error) {
	rep, ok := r.reps[name]
	if !ok {
		return nil, fmt.Errorf("unknown replica %q", name)
	}
	return rep, nil
}

// selectState queries one replica's table with an optional filter and
// returns plain Go values.
func (r *runner) selectState(ctx context.Context, name, table string, where map[string]any) ([]map[string]any, error) {
	rep, err := r.rep(name)
	if err != nil {
		return nil, err
	}
	match, err := toMatch(resolveMap(where, r.vars))
	if err != nil {
		return nil, err
	}
	objs, err := store.Select(ctx, rep.Store().DB(), table, match)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, len(objs))
	for i, o := range objs {
		out[i] = record.ToGo(o).(map[string]any)
	}
	return out, nil
}

// snapshot copies the requested tables into Result.State for golden
// comparison.
func (r *runner) snapshot(ctx context.Context, result *Result, scenario *Scenario) error {
	for _, key := range scenario.Snapshot {
		name, table, ok := strings.Cut(key, "/")
		if !ok {
			return fmt.Errorf("snapshot %q: want replica/table", key)
		}
		rows, err := r.selectState(ctx, name, table, nil)
		if err != nil {
			return fmt.Errorf("snapshot %q: %w", key, err)
		}
		list := make([]any, len(rows))
		for i, row := range rows {
			list[i] = row
		}
		result.State[key] = list
	}
	return nil
}

func toMatch(where map[string]any) (query.Match, error) {
	if len(where) == 0 {
		return nil, nil
	}
	m := make(query.Match, len(where))
	for k, v := range where {
		rv, err := record.FromGo(v)
		if err != nil {
			return nil, fmt.Errorf("where %s: %w", k, err)
		}
		m[k] = rv
	}
	return m, nil
}

// resolveMap substitutes "$var" string values from saved ids.
func resolveMap(args map[string]any, vars map[string]string) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = resolveValue(v, vars)
	}
	return out
}

func resolveValue(v any, vars map[string]string) any {
	switch t := v.(type) {
	case string:
		if strings.HasPrefix(t, "$") {
			if bound, ok := vars[t[1:]]; ok {
				return bound
			}
		}
		return t
	case map[string]any:
		return resolveMap(t, vars)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = resolveValue(e, vars)
		}
		return out
	default:
		return v
	}
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func boolArg(args map[string]any, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// seqIDs is the harness id generator: replica-name prefixed, counting
// from 1. Deterministic per run so golden traces are stable.
type seqIDs struct {
	prefix string
	n      int
}

func (g *seqIDs) NewID() string {
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
