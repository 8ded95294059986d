// Package recipe evaluates clinical adjustment recipes written as small
// s-expressions into a socket plan. A recipe bundles the socket parameters
// and the ordered mark list in one reviewable file:
//
//	(socket :clearance 2.5 :wall 4.0 :voxel 0.5)
//	(pad :at (vec3 10 0 120) :radius 20 :amount 2)
//	(relief :at (vec3 -15 5 80) :radius 12 :amount 1.5)
//	(trim-sphere :at (vec3 0 40 150) :radius 15)
//	(trim-plane :z 240)
//
// Evaluation runs in a sandboxed zygomys environment with a hard timeout;
// user code cannot touch the filesystem or the network.
package recipe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/akrolimb/socketlab/pkg/socket"
)

// EvalTimeout is the hard limit for a single recipe evaluation.
const EvalTimeout = 5 * time.Second

// EvalError is a non-fatal problem in recipe source: a parse error or a
// runtime error in user code.
type EvalError struct {
	Line    int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Engine evaluates recipes. Each call to Evaluate creates a fresh sandbox,
// so the engine is safe for concurrent use.
type Engine struct {
	mu         sync.Mutex
	generation uint64
}

// NewEngine creates a recipe engine.
func NewEngine() *Engine {
	return &Engine{}
}

type evalResult struct {
	plan   socket.Plan
	errors []EvalError
	err    error
}

// Evaluate turns recipe source into a socket plan.
//
// Return semantics:
//   - success: plan + nil errors + nil error
//   - parse or eval failure: zero plan + eval errors + nil error
//   - fatal failure (timeout, panic): zero plan + nil + error
func (e *Engine) Evaluate(source string) (socket.Plan, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during recipe evaluation: %v", r)}
			}
		}()
		plan, evalErrs, err := e.evaluate(source)
		ch <- evalResult{plan: plan, errors: evalErrs, err: err}
	}()

	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()
	select {
	case res := <-ch:
		e.mu.Lock()
		current := e.generation
		e.mu.Unlock()
		if gen != current {
			return socket.Plan{}, nil, fmt.Errorf("recipe evaluation superseded by newer request")
		}
		return res.plan, res.errors, res.err
	case <-timer.C:
		return socket.Plan{}, nil, fmt.Errorf("recipe evaluation timed out after %s", EvalTimeout)
	}
}

func (e *Engine) evaluate(source string) (socket.Plan, []EvalError, error) {
	// An empty recipe is a valid program yielding the default plan.
	if strings.TrimSpace(source) == "" {
		return socket.DefaultPlan(), nil, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b := &planBuilder{plan: socket.DefaultPlan()}
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return socket.Plan{}, parseZygoError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return socket.Plan{}, parseZygoError(err), nil
	}
	return b.plan, nil, nil
}

// linePattern matches zygomys "Error on line N: ..." messages.
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches plain "line N: ..." messages.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygoError converts a zygomys error into EvalError values, pulling a
// line number out of the message when one is present.
func parseZygoError(err error) []EvalError {
	msg := err.Error()
	if m := linePattern.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	if m := linePatternShort.FindStringSubmatch(msg); m != nil {
		line, _ := strconv.Atoi(m[1])
		return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
