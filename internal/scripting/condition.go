// Package scripting evaluates level win conditions written as small
// JavaScript expressions over the final tally.
package scripting

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/MJE43/rps-gauntlet/internal/engine"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 250 * time.Millisecond

var ErrEmptyCondition = errors.New("empty win condition")

// Condition is a compiled win-condition expression. The expression sees
// wins, ties, losses and totalRounds as globals and must yield a boolean.
type Condition struct {
	source  string
	program *goja.Program
	timeout time.Duration
}

// Option configures a Condition.
type Option func(*Condition)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(c *Condition) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Compile parses expr once so it can be evaluated many times.
func Compile(expr string, opts ...Option) (*Condition, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, ErrEmptyCondition
	}
	// Parenthesised so statements are rejected at compile time.
	program, err := goja.Compile("win-condition", "("+expr+")", true)
	if err != nil {
		return nil, fmt.Errorf("compile win condition %q: %w", expr, err)
	}
	c := &Condition{source: expr, program: program, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// MustCompile is Compile for built-in expressions; it panics on error.
func MustCompile(expr string, opts ...Option) *Condition {
	c, err := Compile(expr, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Source returns the expression text.
func (c *Condition) Source() string {
	return c.source
}

// Eval runs the expression against a final tally.
func (c *Condition) Eval(t engine.Tally, totalRounds int) (bool, error) {
	rt := newSandbox()
	rt.Set("wins", t.Wins)
	rt.Set("ties", t.Ties)
	rt.Set("losses", t.Losses)
	rt.Set("totalRounds", totalRounds)

	var result goja.Value
	err := runWithTimeout(rt, c.timeout, func() error {
		v, err := rt.RunProgram(c.program)
		if err != nil {
			return fmt.Errorf("win condition error: %w", err)
		}
		result = v
		return nil
	})
	if err != nil {
		return false, err
	}
	if result == nil || goja.IsUndefined(result) || goja.IsNull(result) {
		return false, fmt.Errorf("win condition %q produced no value", c.source)
	}
	return result.ToBoolean(), nil
}

func newSandbox() *goja.Runtime {
	rt := goja.New()
	rt.Set("require", goja.Undefined())
	rt.Set("fetch", goja.Undefined())
	rt.Set("XMLHttpRequest", goja.Undefined())
	rt.Set("eval", goja.Undefined())
	rt.Set("Function", goja.Undefined())
	return rt
}

func runWithTimeout(rt *goja.Runtime, timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		rt.Interrupt("win condition timeout")
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("win condition timed out: %w", err)
			}
			return fmt.Errorf("win condition timed out")
		case <-time.After(200 * time.Millisecond):
			return fmt.Errorf("win condition timed out")
		}
	}
}
