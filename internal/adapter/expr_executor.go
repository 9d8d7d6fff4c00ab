package adapter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"

	"gooze.dev/pkg/testbench/internal/coverage"
	"gooze.dev/pkg/testbench/internal/loader"
	m "gooze.dev/pkg/testbench/internal/model"
	"gooze.dev/pkg/testbench/internal/runner"
)

const (
	// ExecutorUnit is the unit name used for executor frames in fault stacks.
	ExecutorUnit = "testbench.model.executor.ExprExecutor"

	// EvaluationErrorType is the failure type of expressions that cannot be evaluated.
	EvaluationErrorType = "testbench.EvaluationError"
	// StackOverflowType is the failure type of runaway recursion.
	StackOverflowType = "testbench.StackOverflowError"
	// ArgumentErrorType is the failure type of calls with the wrong arity.
	ArgumentErrorType = "testbench.ArgumentError"
	// TimeoutErrorType is the failure type of programs stopped by their deadline.
	TimeoutErrorType = "testbench.TimeoutError"

	// DefaultMaxDepth bounds nested call() evaluations.
	DefaultMaxDepth = 200
)

// Context stack markers for operations that are not method calls.
const (
	constructContext int32 = -1
	readContext      int32 = -2
)

// ExprExecutor runs programs against units whose members are expressions.
// Method bodies may call fail(type, message) to raise a failure and
// call(method, args...) to invoke another method of the same unit.
// Operation results are signed only when the request records or verifies
// a signature. A program stopped by its deadline reports a timeout failure
// carrying the stack it was interrupted in.
type ExprExecutor struct {
	// Environment lists the units resolved by Setup.
	Environment []string
	MaxDepth    int

	compiled sync.Map
}

// NewExprExecutor returns an executor that resolves environment during setup.
func NewExprExecutor(environment ...string) *ExprExecutor {
	return &ExprExecutor{Environment: environment, MaxDepth: DefaultMaxDepth}
}

type compiledExpr struct {
	program *vm.Program
	idents  []string
}

type identCollector struct {
	names map[string]bool
}

func (c *identCollector) Visit(node *ast.Node) {
	if id, ok := (*node).(*ast.IdentifierNode); ok {
		c.names[id.Value] = true
	}
}

func (e *ExprExecutor) compile(code string) (*compiledExpr, error) {
	if c, ok := e.compiled.Load(code); ok {
		return c.(*compiledExpr), nil
	}

	tree, err := parser.Parse(code)
	if err != nil {
		return nil, err
	}

	collector := &identCollector{names: map[string]bool{}}
	ast.Walk(&tree.Node, collector)

	program, err := expr.Compile(code)
	if err != nil {
		return nil, err
	}

	idents := make([]string, 0, len(collector.names))
	for name := range collector.names {
		idents = append(idents, name)
	}

	sort.Strings(idents)

	c := &compiledExpr{program: program, idents: idents}
	e.compiled.Store(code, c)

	return c, nil
}

// Setup implements runner.Executor.
func (e *ExprExecutor) Setup(ctx context.Context, lc *loader.Context) error {
	for _, name := range e.Environment {
		if _, err := lc.Resolve(ctx, name); err != nil {
			return fmt.Errorf("failed to resolve environment unit %s: %w", name, err)
		}
	}

	return nil
}

// MutantCount implements domain.MutantSpace.
func (e *ExprExecutor) MutantCount(ctx context.Context, lc *loader.Context, unit string) (int, error) {
	u, err := lc.Resolve(ctx, unit)
	if err != nil {
		return 0, err
	}

	return u.Manifest.MutantCount(), nil
}

type definition struct {
	id   int32
	site coverage.Stack
}

// execution is the state of one program run.
type execution struct {
	exec     *ExprExecutor
	ctx      context.Context
	req      runner.Request
	fields   map[string]map[string]any
	defs     map[string]definition
	ids      map[string]int32
	ordinal  map[string]int32
	report   runner.Report
	frames   []m.Frame
	raised   *m.Failure
	aborted  error
	timedOut *m.Failure
}

// Execute implements runner.Executor.
func (e *ExprExecutor) Execute(ctx context.Context, req runner.Request, stopOnFirstFault bool) (runner.Report, error) {
	if req.Program == nil {
		return runner.Report{}, errors.New("no program to execute")
	}

	x := &execution{
		exec:    e,
		ctx:     ctx,
		req:     req,
		fields:  map[string]map[string]any{},
		defs:    map[string]definition{},
		ids:     map[string]int32{},
		ordinal: map[string]int32{},
	}

	for i, unit := range req.Program.Units() {
		x.ordinal[unit] = int32(i)
	}

	for i, step := range req.Program.Steps {
		if err := ctx.Err(); err != nil {
			x.enter(i)
			x.interrupted(err, step.Unit)

			return x.stopped(err)
		}

		failure, err := x.step(i, step)
		if err != nil {
			return x.stopped(err)
		}

		if failure != nil {
			x.report.Faults = append(x.report.Faults, failure)
			x.sign(fmt.Sprintf("%s!%s", describe(step), failure.Type))

			if stopOnFirstFault {
				break
			}
		}
	}

	return x.report, nil
}

// stopped ends an execution that cannot continue, reporting the timeout
// failure when the deadline caused it.
func (x *execution) stopped(err error) (runner.Report, error) {
	if x.timedOut != nil {
		x.report.Faults = append(x.report.Faults, x.timedOut)
	}

	return x.report, err
}

// interrupted records a timeout failure at the current stack when err is a
// deadline expiry.
func (x *execution) interrupted(err error, unit string) error {
	if x.timedOut == nil && errors.Is(err, context.DeadlineExceeded) {
		x.timedOut = x.failure(TimeoutErrorType, err.Error(), m.FailureTimeout, unit)
	}

	return err
}

func (x *execution) sign(entry string) {
	if x.req.Record || x.req.Expected != nil {
		x.report.Signature = append(x.report.Signature, entry)
	}
}

func describe(step m.Step) string {
	switch step.Kind() {
	case m.StepConstruct:
		return step.Unit + ".<init>"
	case m.StepInvoke:
		return step.Unit + "." + step.Invoke
	default:
		return step.Unit + "#" + step.Field
	}
}

// step runs one operation. A returned failure is a fault of the program;
// a returned error means the execution cannot continue.
func (x *execution) step(i int, step m.Step) (*m.Failure, error) {
	x.enter(i)

	switch step.Kind() {
	case m.StepConstruct:
		return x.construct(step)
	case m.StepInvoke:
		return x.invoke(step)
	default:
		return x.read(step)
	}
}

func (x *execution) enter(i int) {
	x.frames = []m.Frame{{Unit: x.req.Program.Name, Member: "step", Source: x.req.Program.Name, Line: int32(i + 1)}}
}

func (x *execution) state(unit *m.Unit) map[string]any {
	if f, ok := x.fields[unit.Name]; ok {
		return f
	}

	f := map[string]any{}
	for name, v := range unit.Manifest.Fields {
		f[name] = v
	}

	x.fields[unit.Name] = f

	return f
}

func (x *execution) define(unit, field string, site coverage.Stack) {
	key := unit + "#" + field

	id, ok := x.ids[key]
	if !ok {
		id = int32(len(x.ids))
		x.ids[key] = id
	}

	x.defs[key] = definition{id: id, site: site}
}

func (x *execution) expose(unit string, idents []string, site coverage.Stack) {
	for _, name := range idents {
		def, ok := x.defs[unit+"#"+name]
		if !ok {
			continue
		}

		x.report.Exposures = append(x.report.Exposures, runner.Exposure{
			Stack: site,
			Def:   coverage.ContextualID{ID: def.id, Context: def.site},
		})
	}
}

func (x *execution) failure(typeName, message string, kind m.FailureKind, unit string) *m.Failure {
	stack := make([]m.Frame, 0, len(x.frames)+1)
	for i := len(x.frames) - 1; i >= 0; i-- {
		stack = append(stack, x.frames[i])
	}

	stack = append(stack, m.Frame{Unit: ExecutorUnit, Member: "Execute", Source: "expr_executor.go", Line: 1})

	return &m.Failure{Type: typeName, Message: message, Kind: kind, Stack: stack, Target: unit}
}

func (x *execution) lookup(d loader.Descriptor) (loader.Handle, error) {
	h, err := x.req.Loader.Lookup(x.ctx, d)
	if err != nil {
		return loader.Handle{}, &runner.SetupError{Err: err}
	}

	return h, nil
}

func (x *execution) construct(step m.Step) (*m.Failure, error) {
	h, err := x.lookup(loader.Descriptor{Kind: loader.KindConstructor, Unit: step.Unit, Params: step.Params})
	if err != nil {
		return nil, err
	}

	if len(step.Args) > len(h.Constructor.Params) {
		return x.failure(ArgumentErrorType, fmt.Sprintf("%d arguments for %d parameters", len(step.Args), len(h.Constructor.Params)), m.FailureOrdinary, step.Unit), nil
	}

	site := coverage.Stack{x.ordinal[step.Unit], constructContext}
	x.frames = append(x.frames, m.Frame{Unit: step.Unit, Member: "<init>", Source: step.Unit + UnitExt, Line: 1})

	fields := map[string]any{}
	for name, v := range h.Unit.Manifest.Fields {
		fields[name] = v
	}

	env := bind(fields, h.Constructor.Params, step.Args)

	names := make([]string, 0, len(h.Constructor.Init))
	for name := range h.Constructor.Init {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		value, failure, err := x.eval(h.Unit, h.Constructor.Init[name], env, site)
		if err != nil || failure != nil {
			return failure, err
		}

		fields[name] = value
		x.define(step.Unit, name, site)
	}

	x.fields[step.Unit] = fields
	x.sign(describe(step) + "=ok")

	return nil, nil
}

func (x *execution) invoke(step m.Step) (*m.Failure, error) {
	h, err := x.lookup(loader.Descriptor{Kind: loader.KindMethod, Unit: step.Unit, Name: step.Invoke, Params: step.Params})
	if err != nil {
		return nil, err
	}

	value, failure, err := x.call(h, step.Args, 0)
	if err != nil || failure != nil {
		return failure, err
	}

	x.sign(fmt.Sprintf("%s=%v", describe(step), value))

	return nil, nil
}

func (x *execution) read(step m.Step) (*m.Failure, error) {
	h, err := x.lookup(loader.Descriptor{Kind: loader.KindField, Unit: step.Unit, Name: step.Field})
	if err != nil {
		return nil, err
	}

	value := x.state(h.Unit)[step.Field]
	x.expose(step.Unit, []string{step.Field}, coverage.Stack{x.ordinal[step.Unit], readContext})
	x.sign(fmt.Sprintf("%s=%v", describe(step), value))

	return nil, nil
}

// code returns the expression to run for the method of h, honouring the
// mutation control.
func (x *execution) code(h loader.Handle) string {
	control := x.req.Control
	unit := h.Unit.Name

	if control.Tracking(unit) && len(h.Method.Mutants) > 0 {
		control.Track()

		for k := range h.Method.Mutants {
			control.Touch(h.FirstMutant + k)
		}
	}

	for k, mutant := range h.Method.Mutants {
		if control.Active(unit, h.FirstMutant+k) {
			return mutant
		}
	}

	return h.Method.Body
}

func (x *execution) call(h loader.Handle, args []any, depth int) (any, *m.Failure, error) {
	unit := h.Unit.Name

	x.frames = append(x.frames, m.Frame{Unit: unit, Member: h.Method.Name, Source: unit + UnitExt, Line: int32(h.FirstMutant)})
	defer func() { x.frames = x.frames[:len(x.frames)-1] }()

	if depth >= x.exec.maxDepth() {
		return nil, x.failure(StackOverflowType, fmt.Sprintf("call depth exceeds %d", x.exec.maxDepth()), m.FailureStackOverflow, unit), nil
	}

	if len(args) > len(h.Method.Params) {
		return nil, x.failure(ArgumentErrorType, fmt.Sprintf("%d arguments for %d parameters", len(args), len(h.Method.Params)), m.FailureOrdinary, unit), nil
	}

	fields := x.state(h.Unit)
	env := bind(fields, h.Method.Params, args)
	site := coverage.Stack{x.ordinal[unit], methodIndex(h)}

	env["call"] = func(name string, callArgs ...any) (any, error) {
		return x.nested(h.Unit, name, callArgs, depth+1)
	}

	value, failure, err := x.eval(h.Unit, x.code(h), env, site)
	if err != nil || failure != nil {
		return nil, failure, err
	}

	if h.Method.Assign != "" {
		fields[h.Method.Assign] = value
		x.define(unit, h.Method.Assign, site)
	}

	return value, nil, nil
}

// nested runs a call() made from inside an expression. Failures are kept
// in x.raised so the outermost evaluation reports the innermost failure.
func (x *execution) nested(unit *m.Unit, name string, args []any, depth int) (any, error) {
	if err := x.ctx.Err(); err != nil {
		x.aborted = x.interrupted(err, unit.Name)

		return nil, err
	}

	h, err := x.lookup(loader.Descriptor{Kind: loader.KindMethod, Unit: unit.Name, Name: name})
	if err != nil {
		x.aborted = err

		return nil, err
	}

	value, failure, err := x.call(h, args, depth)
	if err != nil {
		x.aborted = err

		return nil, err
	}

	if failure != nil {
		if x.raised == nil {
			x.raised = failure
		}

		return nil, failure
	}

	return value, nil
}

func (x *execution) eval(unit *m.Unit, code string, env map[string]any, site coverage.Stack) (any, *m.Failure, error) {
	compiled, err := x.exec.compile(code)
	if err != nil {
		return nil, x.failure(EvaluationErrorType, err.Error(), m.FailureOrdinary, unit.Name), nil
	}

	x.expose(unit.Name, compiled.idents, site)

	env["fail"] = func(typeName, message string) (any, error) {
		failure := x.failure(typeName, message, m.FailureOrdinary, unit.Name)
		if x.raised == nil {
			x.raised = failure
		}

		return nil, failure
	}

	value, err := expr.Run(compiled.program, env)
	if x.aborted != nil {
		return nil, nil, x.aborted
	}

	if x.raised != nil {
		failure := x.raised
		if err == nil || len(x.frames) <= 2 {
			x.raised = nil
		}

		return nil, failure, nil
	}

	if err != nil {
		return nil, x.failure(EvaluationErrorType, err.Error(), m.FailureOrdinary, unit.Name), nil
	}

	return value, nil, nil
}

func (e *ExprExecutor) maxDepth() int {
	if e.MaxDepth <= 0 {
		return DefaultMaxDepth
	}

	return e.MaxDepth
}

func methodIndex(h loader.Handle) int32 {
	for i := range h.Unit.Manifest.Methods {
		if &h.Unit.Manifest.Methods[i] == h.Method {
			return int32(i)
		}
	}

	return -3
}

func bind(fields map[string]any, params []m.Param, args []any) map[string]any {
	env := make(map[string]any, len(fields)+len(params)+2)
	for name, v := range fields {
		env[name] = v
	}

	for i, p := range params {
		var v any
		if i < len(args) {
			v = args[i]
		}

		env[p.Name] = v
	}

	return env
}
