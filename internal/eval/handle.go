package eval

import (
	"sync"

	"github.com/vibe-xs/xs/internal/ast"
)

// Frame is one link of the evaluator's dynamic handler stack: the set of
// clauses installed by an enclosing Handle expression, reachable while
// evaluating its body (and, transitively, anything that body calls) —
// spec §4.H: "raise an Operation ... up the call stack to the nearest
// Handle frame that matches." Unlike internal/check.Env (a lexical scope
// chain), Frame is dynamic: Apply threads the *caller's* frame into a
// closure body rather than the frame captured at closure-creation time.
type Frame struct {
	clauses []ast.HandleClause
	reqCh   chan *effectRequest
	parent  *Frame
}

// matches reports whether this frame installs a non-return clause for
// (effect, op) — the test evalPerform walks the frame chain with to find
// the nearest matching handler.
func (f *Frame) matches(effect, op string) bool {
	for _, cl := range f.clauses {
		if !cl.IsReturn && cl.Effect == effect && cl.Operation == op {
			return true
		}
	}
	return false
}

func (f *Frame) clause(effect, op string) (ast.HandleClause, bool) {
	for _, cl := range f.clauses {
		if !cl.IsReturn && cl.Effect == effect && cl.Operation == op {
			return cl, true
		}
	}
	return ast.HandleClause{}, false
}

func (f *Frame) returnClause() (ast.HandleClause, bool) {
	for _, cl := range f.clauses {
		if cl.IsReturn {
			return cl, true
		}
	}
	return ast.HandleClause{}, false
}

// effectRequest is one perform, en route from the performing goroutine
// (running the handled body, possibly nested many calls deep) to the
// handler that is about to evaluate the matching clause. Resume carries
// the single value that handler clause's invocation of `k` will deliver
// back — or the information that the suspended computation should instead
// observe the handled expression unwinding with an error (the checker
// forbids this in well-typed programs, but the evaluator must still cope
// when run over unchecked input).
type effectRequest struct {
	Op     string
	Effect string
	Arg    Value
	resume chan resumeMsg
}

type resumeMsg struct {
	value Value
	err   error
}

// doneMsg is what a handled body's goroutine posts to doneCh when it runs
// to completion (including when it raises any error other than its own
// performed effect reaching the matching clause).
type doneMsg struct {
	value Value
	err   error
}

// evalHandle implements spec §4.H's Handle rule: run body in its own
// goroutine so that a `perform` inside it can block (on effectRequest.resume)
// without blocking the rest of the program — the suspended goroutine *is*
// the reified continuation; resuming it is exactly sending a value on its
// blocked channel receive. This is the idiomatic Go answer to "reify the
// rest of a computation as a value" without a CPS-transformed evaluator:
// a parked goroutine already *is* a suspended computation, and a channel
// send already *is* a single delivery into it.
func (ev *Evaluator) evalHandle(env *Env, frame *Frame, h *ast.Handle) (Value, error) {
	reqCh := make(chan *effectRequest)
	doneCh := make(chan doneMsg, 1)
	child := &Frame{clauses: h.Clauses, reqCh: reqCh, parent: frame}

	go func() {
		v, err := ev.Eval(env, child, h.Body)
		doneCh <- doneMsg{value: v, err: err}
	}()

	return ev.driveHandle(frame, child, env, reqCh, doneCh)
}

// driveHandle waits for the next observable event from one (possibly
// resumed) run of a handled body: either it performs an operation this
// handler installs a clause for, or it settles (runs to completion, or
// unwinds with an error the handler does not own). Each call performs
// exactly one such wait — a clause body that invokes its continuation
// recurses back into driveHandle (via the VContinuation's resume closure)
// to keep observing the same suspended computation.
func (ev *Evaluator) driveHandle(outerFrame, childFrame *Frame, env *Env, reqCh chan *effectRequest, doneCh chan doneMsg) (Value, error) {
	select {
	case req := <-reqCh:
		cl, ok := childFrame.clause(req.Effect, req.Op)
		if !ok {
			// Not actually ours (shouldn't happen: evalPerform only routes
			// here after matches() succeeded) — propagate as unhandled.
			return nil, RuntimeErrorf("UnhandledEffect", "handler received unmatched operation %s.%s", req.Effect, req.Op)
		}
		clauseEnv := env.Child()
		if len(cl.Params) > 0 {
			clauseEnv.Bind(cl.Params[0], req.Arg)
		}
		var used sync.Once
		k := &VContinuation{resume: func(v Value) (Value, error) {
			var result Value
			var err error
			alreadyUsed := true
			used.Do(func() {
				alreadyUsed = false
				req.resume <- resumeMsg{value: v}
				result, err = ev.driveHandle(outerFrame, childFrame, env, reqCh, doneCh)
			})
			if alreadyUsed {
				return nil, RuntimeErrorf("ContinuationAlreadyResumed", "continuation for %s.%s invoked more than once", req.Effect, req.Op)
			}
			return result, err
		}}
		clauseEnv.Bind(cl.Continuation, k)
		return ev.Eval(clauseEnv, outerFrame, cl.Body)

	case msg := <-doneCh:
		if msg.err != nil {
			return nil, msg.err
		}
		if rc, ok := childFrame.returnClause(); ok {
			retEnv := env.Child()
			if len(rc.Params) > 0 {
				retEnv.Bind(rc.Params[0], msg.value)
			}
			return ev.Eval(retEnv, outerFrame, rc.Body)
		}
		return msg.value, nil
	}
}

// evalPerform implements spec §4.H's Perform rule: evaluate the argument,
// then find the nearest enclosing Frame whose clauses match (effect, op)
// and hand it the request, blocking until some invocation of the
// resulting continuation (or the handler's own clause-evaluation path)
// delivers a resumption value.
func (ev *Evaluator) evalPerform(env *Env, frame *Frame, p *ast.Perform) (Value, error) {
	var arg Value = VUnit{}
	if len(p.Args) == 1 {
		v, err := ev.Eval(env, frame, p.Args[0])
		if err != nil {
			return nil, err
		}
		arg = v
	}
	for f := frame; f != nil; f = f.parent {
		if f.matches(p.Effect, p.Operation) {
			req := &effectRequest{Effect: p.Effect, Op: p.Operation, Arg: arg, resume: make(chan resumeMsg)}
			f.reqCh <- req
			msg := <-req.resume
			return msg.value, msg.err
		}
	}
	if p.Effect == "IO" {
		return ev.hostIO(p.Operation, arg)
	}
	return nil, RuntimeErrorf("UnhandledEffect", "no handler in scope for %s.%s", p.Effect, p.Operation)
}

// hostIO is the default top-level handler spec §4.G/§4.E describe for IO:
// "the default top-level handler forwards to the host."
func (ev *Evaluator) hostIO(op string, arg Value) (Value, error) {
	if ev.host == nil {
		return nil, RuntimeErrorf("UnhandledEffect", "IO.%s performed with no host installed", op)
	}
	switch op {
	case "print":
		s, _ := arg.(VString)
		ev.host.Print(string(s))
		return VUnit{}, nil
	case "readLine":
		return VString(ev.host.ReadLine()), nil
	default:
		return nil, RuntimeErrorf("UnhandledEffect", "IO has no operation %q", op)
	}
}
