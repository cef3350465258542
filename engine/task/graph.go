package task

import (
	"slices"

	"github.com/compozy/assetflow/engine/pipeline"
)

// Kind tells what a graph entry does when run.
type Kind int

const (
	KindTask Kind = iota
	KindAggregate
	KindWatch
)

func (k Kind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindAggregate:
		return "aggregate"
	case KindWatch:
		return "watch"
	default:
		return "unknown"
	}
}

// Task is a named set of pipelines run as one unit. It holds no state between
// runs, so every run reprocesses the full match set.
type Task struct {
	Name      string
	Pipelines []*pipeline.Pipeline
}

// Aggregate runs other entries one after another in declared order.
type Aggregate struct {
	Name  string
	Steps []string
}

// WatchBinding re-runs Tasks whenever a path matching one of Globs changes.
type WatchBinding struct {
	Name  string
	Globs []string
	Tasks []string
	// Unwatched lists source globs of the bound tasks that no watch glob covers.
	// It is reported at startup.
	Unwatched []string
}

// Entry is one named node of a Graph. Exactly one of the pointers is set.
type Entry struct {
	Kind      Kind
	Task      *Task
	Aggregate *Aggregate
	Watch     *WatchBinding
}

// Name returns the entry's name.
func (e Entry) Name() string {
	switch e.Kind {
	case KindTask:
		return e.Task.Name
	case KindAggregate:
		return e.Aggregate.Name
	case KindWatch:
		return e.Watch.Name
	default:
		return ""
	}
}

func TaskEntry(t *Task) Entry {
	return Entry{Kind: KindTask, Task: t}
}

func AggregateEntry(name string, steps ...string) Entry {
	return Entry{Kind: KindAggregate, Aggregate: &Aggregate{Name: name, Steps: steps}}
}

func WatchEntry(b *WatchBinding) Entry {
	return Entry{Kind: KindWatch, Watch: b}
}

// Graph is an immutable, validated set of entries. It is safe for concurrent
// read access.
type Graph struct {
	byName map[string]Entry
	order  []string
}

// NewGraph builds and validates a graph.
//
// Validation rejects:
//   - missing or nil entries and empty or duplicate names
//   - aggregate steps and watch bindings that reference unknown names
//   - watch bindings bound to anything other than plain tasks
//   - aggregate cycles (direct or indirect)
func NewGraph(entries ...Entry) (*Graph, error) {
	if len(entries) == 0 {
		return nil, invalidf("no entries")
	}
	g := &Graph{byName: make(map[string]Entry, len(entries))}
	for _, e := range entries {
		if err := checkEntry(e); err != nil {
			return nil, err
		}
		name := e.Name()
		if name == "" {
			return nil, invalidf("entry name is required")
		}
		if _, exists := g.byName[name]; exists {
			return nil, invalidf("duplicate entry name: %q", name)
		}
		g.byName[name] = e
		g.order = append(g.order, name)
	}
	for _, name := range g.order {
		e := g.byName[name]
		switch e.Kind {
		case KindAggregate:
			for _, step := range e.Aggregate.Steps {
				if _, ok := g.byName[step]; !ok {
					return nil, invalidf("aggregate %q references unknown entry %q", name, step)
				}
			}
		case KindWatch:
			if len(e.Watch.Globs) == 0 {
				return nil, invalidf("watch %q has no globs", name)
			}
			for _, t := range e.Watch.Tasks {
				ref, ok := g.byName[t]
				if !ok {
					return nil, invalidf("watch %q references unknown entry %q", name, t)
				}
				if ref.Kind != KindTask {
					return nil, invalidf("watch %q must bind tasks, %q is a %s", name, t, ref.Kind)
				}
			}
		}
	}
	if err := g.checkCycles(); err != nil {
		return nil, err
	}
	return g, nil
}

func checkEntry(e Entry) error {
	switch e.Kind {
	case KindTask:
		if e.Task == nil {
			return invalidf("task entry without task")
		}
		for i, p := range e.Task.Pipelines {
			if p == nil {
				return invalidf("task %q: pipeline %d is nil", e.Task.Name, i)
			}
		}
	case KindAggregate:
		if e.Aggregate == nil {
			return invalidf("aggregate entry without aggregate")
		}
	case KindWatch:
		if e.Watch == nil {
			return invalidf("watch entry without binding")
		}
	default:
		return invalidf("unknown entry kind %d", e.Kind)
	}
	return nil
}

// checkCycles walks aggregate steps depth first in declared order.
func (g *Graph) checkCycles() error {
	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[string]int, len(g.order))
	var stack []string
	var visit func(name string) error
	visit = func(name string) error {
		switch marks[name] {
		case visiting:
			start := slices.Index(stack, name)
			return cycleError(append(slices.Clone(stack[start:]), name))
		case done:
			return nil
		}
		marks[name] = visiting
		stack = append(stack, name)
		if e := g.byName[name]; e.Kind == KindAggregate {
			for _, step := range e.Aggregate.Steps {
				if err := visit(step); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		marks[name] = done
		return nil
	}
	for _, name := range g.order {
		if err := visit(name); err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns the entry registered under name.
func (g *Graph) Lookup(name string) (Entry, bool) {
	e, ok := g.byName[name]
	return e, ok
}

// Names returns entry names in declared order.
func (g *Graph) Names() []string {
	return slices.Clone(g.order)
}

// Entries returns all entries in declared order.
func (g *Graph) Entries() []Entry {
	out := make([]Entry, len(g.order))
	for i, name := range g.order {
		out[i] = g.byName[name]
	}
	return out
}

// Resolve checks that every name exists.
func (g *Graph) Resolve(names ...string) error {
	for _, name := range names {
		if _, ok := g.byName[name]; !ok {
			return &UnknownTaskError{Name: name, Known: g.Names()}
		}
	}
	return nil
}
