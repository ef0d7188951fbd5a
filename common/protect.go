package common

import (
	"fmt"
	"io"
	"runtime/debug"
)

// Invoke thunk repeatedly, protecting it against panics.  Panic messages are printed to `log`
// (though if converting the message to string throws, we'll actually exit out of the loop).  The
// thunk should loop internally and return only when it wants to be restarted or is done; returning
// true from the thunk ends the loop.

func Forever(thunk func() bool, log io.Writer) {
	done := false
	d := func() {
		if msg := recover(); msg != nil {
			fmt.Fprintln(log, msg)
		}
	}
	t2 := func() {
		defer d()
		done = thunk()
	}
	defer func() {
		if msg := recover(); msg != nil {
			panic("PANIC IN CONVERSION OF PANIC MSG; PANICKING!")
		}
	}()
	for !done {
		t2()
	}
}

// Run f and turn a panic into an error carrying the stack.

func Protect[T any](f func() (T, error)) (result T, err error) {
	defer func() {
		if msg := recover(); msg != nil {
			err = fmt.Errorf("panic: %v\n%s", msg, debug.Stack())
		}
	}()
	return f()
}
