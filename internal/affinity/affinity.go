// Package affinity binds an API to a single goroutine.
//
// Go does not expose goroutine identity, so a Token reads the id from the
// header line of runtime.Stack. The cost is a small fixed-size stack read per
// check, which is acceptable on the controller's public API.
package affinity

import (
	"bytes"
	"errors"
	"runtime"
	"strconv"

	"github.com/dshills/sectionflow/internal/collection"
)

// ErrWrongGoroutine indicates a call from a goroutine other than the bound one.
var ErrWrongGoroutine = errors.New("called off the control goroutine")

// Token records the goroutine an API is bound to.
type Token struct {
	id uint64
}

// Bind returns a token bound to the calling goroutine.
func Bind() *Token {
	return &Token{id: current()}
}

// Unbound returns a token that accepts every goroutine. It is meant for
// embedders that serialize access themselves.
func Unbound() *Token {
	return &Token{}
}

// OnBound reports whether the caller runs on the bound goroutine.
func (t *Token) OnBound() bool {
	return t.id == 0 || t.id == current()
}

// Check panics with an assertion wrapping ErrWrongGoroutine when the caller
// is not on the bound goroutine.
func (t *Token) Check(op string) {
	if t.id == 0 {
		return
	}
	if g := current(); g != t.id {
		collection.Assert(op, ErrWrongGoroutine, "goroutine %d, bound to %d", g, t.id)
	}
}

var goroutinePrefix = []byte("goroutine ")

// current returns the id of the calling goroutine.
func current() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	if i := bytes.IndexByte(b, ' '); i > 0 {
		b = b[:i]
	}
	id, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		panic("affinity: cannot parse goroutine id: " + err.Error())
	}
	return id
}
