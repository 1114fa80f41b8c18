package tool

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/logging"
	"github.com/hupe1980/decalflow/model"
	"github.com/hupe1980/decalflow/schema"
)

// Result is the outcome of one dispatched call. Response is always set and
// is what gets fed back to the backend; Err is set when the call failed.
type Result struct {
	Call     core.FunctionCall
	Response core.FunctionResponse
	Err      *core.ToolExecutionError
}

// DispatcherOptions configure a Dispatcher.
type DispatcherOptions struct {
	Logger logging.Logger
}

// Dispatcher executes tool calls requested by the backend.
//
// Concurrency:
//
//	A Dispatcher has no mutable state after construction and is safe for
//	concurrent use by multiple goroutines.
type Dispatcher struct {
	logger logging.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(optFns ...func(o *DispatcherOptions)) *Dispatcher {
	opts := DispatcherOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Dispatcher{logger: opts.Logger}
}

// Dispatch executes calls sequentially in request order against the
// declared tools and returns one Result per call. It stops early only when
// ctx is canceled; remaining calls are then reported as failed.
func (d *Dispatcher) Dispatch(ctx context.Context, tools []*Definition, calls []core.FunctionCall) []Result {
	results := make([]Result, 0, len(calls))
	for _, fc := range calls {
		if err := ctx.Err(); err != nil {
			results = append(results, failed(fc, &core.ToolExecutionError{
				Tool: fc.Name, Code: core.CodeExecution, Message: err.Error(), Err: err,
			}))
			continue
		}
		results = append(results, d.Execute(ctx, tools, fc))
	}
	return results
}

// Execute runs a single call: match the tool by name, validate the
// arguments, run the handler with panic recovery, validate the result.
func (d *Dispatcher) Execute(ctx context.Context, tools []*Definition, fc core.FunctionCall) Result {
	def := find(tools, fc.Name)
	if def == nil {
		d.logger.Warn("tool.call.unknown", "tool", fc.Name, "fc_id", fc.ID)
		return failed(fc, &core.ToolExecutionError{
			Tool: fc.Name, Code: core.CodeUnknownTool, Message: fmt.Sprintf("tool %s not declared", fc.Name),
		})
	}

	d.logger.Debug("tool.call.start", "tool", fc.Name, "fc_id", fc.ID)
	start := time.Now()

	raw, err := model.ParseArguments(fc.Arguments)
	if err != nil {
		return d.fail(fc, core.CodeInvalidArguments, fmt.Sprintf("failed to unmarshal args: %v", err), err)
	}
	args, err := schema.Validate(def.Input, raw)
	if err != nil {
		return d.fail(fc, core.CodeInvalidArguments, fmt.Sprintf("parameter validation failed: %v", err), err)
	}
	argMap, _ := args.(map[string]any)

	result, err := invoke(ctx, def.Handler, argMap)
	if err != nil {
		if te, ok := err.(*core.ToolExecutionError); ok {
			if te.Tool == "" {
				te.Tool = fc.Name
			}
			d.logger.Error("tool.call.error", "tool", fc.Name, "code", te.Code, "error", te.Message)
			return failed(fc, te)
		}
		return d.fail(fc, core.CodeExecution, err.Error(), err)
	}

	if def.Output != nil {
		normalized, err := schema.Normalize(result)
		if err == nil {
			result, err = schema.Validate(def.Output, normalized)
		}
		if err != nil {
			return d.fail(fc, core.CodeInvalidResult, fmt.Sprintf("result validation failed: %v", err), err)
		}
	}

	d.logger.Info("tool.call.success", "tool", fc.Name, "fc_id", fc.ID, "duration_ms", time.Since(start).Milliseconds())

	return Result{
		Call:     fc,
		Response: core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result},
	}
}

func (d *Dispatcher) fail(fc core.FunctionCall, code, msg string, cause error) Result {
	d.logger.Error("tool.call.error", "tool", fc.Name, "fc_id", fc.ID, "code", code, "error", msg)
	return failed(fc, &core.ToolExecutionError{Tool: fc.Name, Code: code, Message: msg, Err: cause})
}

func failed(fc core.FunctionCall, te *core.ToolExecutionError) Result {
	return Result{
		Call:     fc,
		Response: core.FunctionResponse{ID: fc.ID, Name: fc.Name, Error: te.Error()},
		Err:      te,
	}
}

// invoke runs the handler converting panics into *core.ToolExecutionError.
func invoke(ctx context.Context, h Handler, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.ToolExecutionError{
				Code:    core.CodePanic,
				Message: fmt.Sprintf("panic recovered: %v", r),
				Err:     &panicErr{val: r, stack: debug.Stack()},
			}
		}
	}()
	return h(ctx, args)
}

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic: %v", p.val) }

func find(tools []*Definition, name string) *Definition {
	for _, t := range tools {
		if t != nil && t.Name == name {
			return t
		}
	}
	return nil
}
