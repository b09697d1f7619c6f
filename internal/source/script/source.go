// Package script provides a data source defined by a Lua script.
//
// The script defines global functions. Sections and items are 0-based:
//
//	function section_count() return 2 end
//	function item_count(section) return 3 end
//	function item(section, index)
//	  return "text"                            -- or {text = "...", resident = true}
//	end
//	function constraint(section, index)        -- optional
//	  return {max_width = 40, max_height = 0, min_width = 0}
//	end
//
// The collection shape is read when the source is created and again on
// Refresh, so the controller always fetches from a consistent snapshot.
// constraint is called lazily for every measurement. The script runs in a
// sandbox without io, os, debug or module loading, and every call is bounded
// by a timeout.
package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/sectionflow/internal/collection"
	"github.com/dshills/sectionflow/internal/logging"
	"github.com/dshills/sectionflow/internal/source/fixture"
)

// DefaultTimeout bounds a single call into the script.
const DefaultTimeout = 2 * time.Second

var (
	// ErrScript classifies failures raised by or about the script.
	ErrScript = errors.New("script error")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("script source is closed")
)

// Source is a data source backed by a Lua state. gopher-lua states are not
// goroutine-safe, so every call into the state holds mu. Lock and Unlock
// expose the same mutex to the controller's fetch bracket.
type Source struct {
	mu       sync.Mutex
	state    *lua.LState
	timeout  time.Duration
	logger   *logging.Logger
	closed   bool
	sections [][]*fixture.TextNode

	base            atomic.Pointer[collection.Constraint]
	constraintCalls atomic.Int64
	constraintErrs  atomic.Int64
}

// Option configures a Source.
type Option func(*Source)

// WithTimeout bounds each call into the script.
func WithTimeout(d time.Duration) Option {
	return func(s *Source) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// Load reads and runs the script at path.
func Load(path string, opts ...Option) (*Source, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script %s: %w", path, err)
	}
	src, err := New(string(code), opts...)
	if err != nil {
		return nil, fmt.Errorf("script %s: %w", path, err)
	}
	return src, nil
}

// New runs code in a fresh sandboxed state and reads the initial shape.
func New(code string, opts ...Option) (*Source, error) {
	s := &Source{
		timeout: DefaultTimeout,
		logger:  logging.NullLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("script")
	s.SetConstraint(collection.Constraint{})

	s.state = newState()
	if err := s.exec(code); err != nil {
		s.state.Close()
		return nil, err
	}
	if err := s.Refresh(); err != nil {
		s.state.Close()
		return nil, err
	}
	return s, nil
}

// newState creates a Lua state with only the safe standard libraries.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// Exec runs more code in the script's state, for example to change what it
// reports. Call Refresh afterwards to pick up a new shape.
func (s *Source) Exec(code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return s.exec(code)
}

func (s *Source) exec(code string) error {
	return s.bounded(func() error {
		if err := s.state.DoString(code); err != nil {
			return fmt.Errorf("%w: %v", ErrScript, err)
		}
		return nil
	})
}

// bounded runs fn with the call timeout installed and turns Lua panics
// into errors.
func (s *Source) bounded(fn func() error) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	s.state.SetContext(ctx)
	defer s.state.RemoveContext()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: lua panic: %v", ErrScript, r)
		}
	}()
	return fn()
}

// call invokes a global function and returns nret results.
func (s *Source) call(name string, nret int, args ...lua.LValue) ([]lua.LValue, error) {
	fn := s.state.GetGlobal(name)
	if fn.Type() != lua.LTFunction {
		return nil, fmt.Errorf("%w: %s is not a function (got %s)", ErrScript, name, fn.Type())
	}
	var out []lua.LValue
	err := s.bounded(func() error {
		if err := s.state.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrScript, name, err)
		}
		out = make([]lua.LValue, nret)
		for i := range out {
			out[i] = s.state.Get(-nret + i)
		}
		s.state.Pop(nret)
		return nil
	})
	return out, err
}

func (s *Source) callInt(name string, args ...lua.LValue) (int, error) {
	ret, err := s.call(name, 1, args...)
	if err != nil {
		return 0, err
	}
	n, ok := ret[0].(lua.LNumber)
	if !ok || n < 0 || lua.LNumber(int(n)) != n {
		return 0, fmt.Errorf("%w: %s returned %s, want a non-negative integer", ErrScript, name, ret[0])
	}
	return int(n), nil
}

// Refresh rereads the shape and every item from the script. On error the
// previous shape is kept. Do not call it while holding Lock.
func (s *Source) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	count, err := s.callInt("section_count")
	if err != nil {
		return err
	}
	sections := make([][]*fixture.TextNode, count)
	for sec := range sections {
		n, err := s.callInt("item_count", lua.LNumber(sec))
		if err != nil {
			return err
		}
		sections[sec] = make([]*fixture.TextNode, n)
		for i := range sections[sec] {
			node, err := s.item(sec, i)
			if err != nil {
				return err
			}
			sections[sec][i] = node
		}
	}
	s.sections = sections
	s.logger.Debug("refreshed: %d sections", count)
	return nil
}

func (s *Source) item(section, index int) (*fixture.TextNode, error) {
	ret, err := s.call("item", 1, lua.LNumber(section), lua.LNumber(index))
	if err != nil {
		return nil, err
	}
	switch v := ret[0].(type) {
	case lua.LString:
		return fixture.NewTextNode(string(v), false), nil
	case *lua.LTable:
		text, ok := v.RawGetString("text").(lua.LString)
		if !ok {
			return nil, fmt.Errorf("%w: item(%d, %d) has no text", ErrScript, section, index)
		}
		return fixture.NewTextNode(string(text), lua.LVAsBool(v.RawGetString("resident"))), nil
	default:
		return nil, fmt.Errorf("%w: item(%d, %d) returned %s", ErrScript, section, index, ret[0].Type())
	}
}

// Lock implements controller.Locker.
func (s *Source) Lock() { s.mu.Lock() }

// Unlock implements controller.Locker.
func (s *Source) Unlock() { s.mu.Unlock() }

// SectionCount returns the number of sections in the current shape.
func (s *Source) SectionCount() int { return len(s.sections) }

// ItemCount returns the number of items in a section.
func (s *Source) ItemCount(section int) int { return len(s.sections[section]) }

// NodeAt returns the node at p.
func (s *Source) NodeAt(p collection.Path) collection.Node {
	return s.sections[p.Section][p.Item]
}

// SetConstraint sets the envelope used when the script has no constraint
// function, and as defaults for fields it leaves out.
func (s *Source) SetConstraint(c collection.Constraint) {
	s.base.Store(&c)
}

// Constraint asks the script's constraint function, if any. A failing call
// is logged and the base envelope is used.
func (s *Source) Constraint(p collection.Path) collection.Constraint {
	c := *s.base.Load()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state.GetGlobal("constraint").Type() != lua.LTFunction {
		return c
	}
	s.constraintCalls.Add(1)
	ret, err := s.call("constraint", 1, lua.LNumber(p.Section), lua.LNumber(p.Item))
	if err != nil {
		s.constraintErrs.Add(1)
		s.logger.Warn("constraint(%s): %v", p, err)
		return c
	}
	t, ok := ret[0].(*lua.LTable)
	if !ok {
		return c
	}
	field := func(name string, dst *float64) {
		if n, ok := t.RawGetString(name).(lua.LNumber); ok {
			*dst = float64(n)
		}
	}
	field("max_width", &c.Max.Width)
	field("max_height", &c.Max.Height)
	field("min_width", &c.Min.Width)
	field("min_height", &c.Min.Height)
	return c
}

// ConstraintCalls returns how often the script's constraint function ran.
func (s *Source) ConstraintCalls() int64 { return s.constraintCalls.Load() }

// ConstraintErrors returns how many constraint calls failed.
func (s *Source) ConstraintErrors() int64 { return s.constraintErrs.Load() }

// Close releases the Lua state.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	s.state.Close()
	return nil
}
