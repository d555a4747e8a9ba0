package app

import (
	"errors"
	"fmt"
)

// ErrNilHandler indicates a binding was declared without a handler.
var ErrNilHandler = errors.New("binding without a handler")

// CmdSpec declares one command a handler accepts.
type CmdSpec struct {
	// Name is the typed opcode: exactly CmdChars ASCII letters, case
	// insensitive.
	Name string
	// Opcode is the private code passed to HandleCommand on a match.
	Opcode byte
	// Args is the required argument count, 0 to 2.
	Args int
}

// Binding attaches one command list to one handler. The same handler
// may appear in adjacent bindings with different command lists;
// lifecycle hooks then run once for it while every list stays
// dispatchable.
type Binding struct {
	Handler Handler
	Cmds    []CmdSpec
}

type cmdEntry struct {
	name   CmdName
	opcode byte
	args   int
}

type handlerRow struct {
	handler Handler
	cmds    []cmdEntry
}

// Registry is the ordered handler table driving command dispatch and
// the lifecycle hooks. It is immutable once built.
type Registry struct {
	rows []handlerRow
}

// NewRegistry compiles bindings into a registry, validating every
// command spec. An empty registry is legal; duplicate command names
// are allowed and the first match wins.
func NewRegistry(bindings ...Binding) (*Registry, error) {
	r := &Registry{rows: make([]handlerRow, 0, len(bindings))}
	for i, b := range bindings {
		if b.Handler == nil {
			return nil, fmt.Errorf("binding %d: %v", i, ErrNilHandler)
		}
		entries := make([]cmdEntry, 0, len(b.Cmds))
		for _, spec := range b.Cmds {
			e, err := compileSpec(spec)
			if err != nil {
				return nil, fmt.Errorf("binding %d: %v", i, err)
			}
			entries = append(entries, e)
		}
		r.rows = append(r.rows, handlerRow{handler: b.Handler, cmds: entries})
	}
	return r, nil
}

func compileSpec(spec CmdSpec) (cmdEntry, error) {
	if len(spec.Name) != CmdChars {
		return cmdEntry{}, fmt.Errorf("command name %q: need exactly %d letters", spec.Name, CmdChars)
	}
	var name CmdName
	for i := 0; i < CmdChars; i++ {
		c := spec.Name[i]
		switch {
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		case c >= 'A' && c <= 'Z':
		default:
			return cmdEntry{}, fmt.Errorf("command name %q: need exactly %d letters", spec.Name, CmdChars)
		}
		name[i] = c
	}
	if spec.Args < 0 || spec.Args > 2 {
		return cmdEntry{}, fmt.Errorf("command %s: argument count %d out of range", name, spec.Args)
	}
	return cmdEntry{name: name, opcode: spec.Opcode, args: spec.Args}, nil
}

// distinct reports whether row i carries a handler not shared with the
// row before it. Lifecycle hooks run only on distinct rows, so a
// handler spanning adjacent rows is ticked and initialized once.
func (r *Registry) distinct(i int) bool {
	return i == 0 || r.rows[i].handler != r.rows[i-1].handler
}

// eachDistinct invokes fn once per distinct handler, with the index of
// the row the handler first appears at.
func (r *Registry) eachDistinct(fn func(i int, h Handler)) {
	for i := range r.rows {
		if r.distinct(i) {
			fn(i, r.rows[i].handler)
		}
	}
}

// dispatch routes cmd to the first row whose command list carries its
// name, scanning every row without deduplication. A name match with
// the wrong argument count rejects the command without searching
// further. It reports whether a handler ran.
func (r *Registry) dispatch(cmd Cmd) bool {
	for _, row := range r.rows {
		for _, e := range row.cmds {
			if e.name != cmd.Name {
				continue
			}
			if e.args != cmd.Args {
				return false
			}
			row.handler.HandleCommand(e.opcode, cmd.Arg1, cmd.Arg2)
			return true
		}
	}
	return false
}
