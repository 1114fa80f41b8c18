package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/decalflow/core"
	"github.com/hupe1980/decalflow/logging"
	"github.com/hupe1980/decalflow/model"
	"github.com/hupe1980/decalflow/prompt"
	"github.com/hupe1980/decalflow/schema"
	"github.com/hupe1980/decalflow/tool"
)

// InvokerOptions configure an Invoker.
type InvokerOptions struct {
	Logger            logging.Logger
	Dispatcher        *tool.Dispatcher
	RequestProcessors []RequestProcessor
}

// Invoker runs flows from a registry against a generation backend. It holds
// no per-call state and is safe for concurrent use.
type Invoker struct {
	registry   *Registry
	model      model.Model
	logger     logging.Logger
	dispatcher *tool.Dispatcher
	processors []RequestProcessor
}

// NewInvoker creates an Invoker.
func NewInvoker(registry *Registry, m model.Model, optFns ...func(o *InvokerOptions)) *Invoker {
	opts := InvokerOptions{
		Logger:            logging.NoOpLogger{},
		RequestProcessors: DefaultRequestProcessors(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = tool.NewDispatcher(func(o *tool.DispatcherOptions) { o.Logger = opts.Logger })
	}
	return &Invoker{
		registry:   registry,
		model:      m,
		logger:     opts.Logger,
		dispatcher: opts.Dispatcher,
		processors: opts.RequestProcessors,
	}
}

// Registry returns the registry flows are resolved from.
func (i *Invoker) Registry() *Registry { return i.registry }

// Invoke runs the named flow with input and returns its validated output.
//
// Failures are typed: *core.NotFoundError, *core.InvalidInputError (no
// backend call made), *core.GenerationRefusedError,
// *core.OutputContractViolationError, *core.ToolExecutionError and
// *core.UpstreamUnavailableError. Handler flow errors pass through. Nothing
// is retried.
func (i *Invoker) Invoke(ctx context.Context, name string, input any) (any, error) {
	def, ok := i.registry.Lookup(name)
	if !ok {
		return nil, &core.NotFoundError{Flow: name}
	}

	start := time.Now()
	i.logger.Debug("flow.invoke.start", "flow", name, "kind", def.Kind())

	validated, err := validateInput(def, input)
	if err != nil {
		i.logger.Warn("flow.input.invalid", "flow", name, "error", err.Error())
		return nil, err
	}

	var out any
	if def.Kind() == KindHandler {
		out, err = i.runHandler(ctx, def, validated)
	} else {
		out, err = i.generate(ctx, def, validated)
	}

	if err != nil {
		var ocv *core.OutputContractViolationError
		if errors.As(err, &ocv) {
			i.logger.Error("flow.output.invalid", "flow", name, "path", ocv.Path, "error", err.Error())
		} else {
			i.logger.Warn("flow.invoke.failed", "flow", name, "error", err.Error(), "duration_ms", time.Since(start).Milliseconds())
		}
		return nil, err
	}

	i.logger.Info("flow.invoke.complete", "flow", name, "duration_ms", time.Since(start).Milliseconds())
	return out, nil
}

func validateInput(def *Definition, input any) (any, error) {
	normalized, err := schema.Normalize(input)
	if err != nil {
		return nil, &core.InvalidInputError{Flow: def.Name, Path: "$", Err: err}
	}
	validated, err := schema.Validate(def.Input, normalized)
	if err != nil {
		inv := &core.InvalidInputError{Flow: def.Name, Err: err}
		var vErr *schema.ValidationError
		if errors.As(err, &vErr) {
			inv.Path = vErr.Path
		}
		return nil, inv
	}
	return validated, nil
}

func (i *Invoker) runHandler(ctx context.Context, def *Definition, input any) (any, error) {
	result, err := def.Handler(ctx, i, input)
	if err != nil {
		return nil, err
	}
	return validateOutput(def, result)
}

// generate makes the backend call for a template flow, handling at most one
// tool round trip.
func (i *Invoker) generate(ctx context.Context, def *Definition, input any) (any, error) {
	req, err := i.buildRequest(&Invocation{Flow: def, Input: input})
	if err != nil {
		return nil, err
	}

	resp, err := i.call(ctx, def, req)
	if err != nil {
		return nil, err
	}

	if calls := resp.FunctionCalls(); len(calls) > 0 {
		if len(def.Tools) == 0 {
			return nil, &core.OutputContractViolationError{
				Flow: def.Name, Path: "$", Err: fmt.Errorf("backend requested tool %s but the flow declares no tools", calls[0].Name),
			}
		}

		results := i.dispatcher.Dispatch(ctx, def.Tools, calls)
		parts := make([]core.Part, 0, len(results))
		for _, r := range results {
			if r.Err != nil {
				if def.FailOnToolError {
					return nil, r.Err
				}
				i.logger.Warn("flow.tool.failed", "flow", def.Name, "tool", r.Call.Name, "code", r.Err.Code)
			}
			parts = append(parts, core.FunctionResponsePart{FunctionResponse: r.Response})
		}

		req.Contents = append(req.Contents, resp.Content, core.Content{Role: core.RoleTool, Parts: parts})

		resp, err = i.call(ctx, def, req)
		if err != nil {
			return nil, err
		}
		if calls := resp.FunctionCalls(); len(calls) > 0 {
			return nil, &core.OutputContractViolationError{
				Flow: def.Name, Path: "$", Err: fmt.Errorf("backend requested tool %s after the tool round trip", calls[0].Name),
			}
		}
	}

	return assembleOutput(def, resp)
}

func (i *Invoker) buildRequest(inv *Invocation) (model.Request, error) {
	var req model.Request
	for _, p := range i.processors {
		if err := p.ProcessRequest(inv, &req); err != nil {
			var rErr *prompt.RenderError
			if errors.As(err, &rErr) {
				return req, &core.InvalidInputError{Flow: inv.Flow.Name, Err: err}
			}
			return req, fmt.Errorf("request processor %s failed: %w", p.Name(), err)
		}
	}
	return req, nil
}

// call sends req and classifies the outcome. Refusals become
// *core.GenerationRefusedError; untyped backend errors are upstream
// failures.
func (i *Invoker) call(ctx context.Context, def *Definition, req model.Request) (*model.Response, error) {
	info := i.model.Info()
	start := time.Now()

	resp, err := i.model.Generate(ctx, req)
	if err != nil {
		i.logger.Error("model.generate.failed", "flow", def.Name, "model", info.Name, "error", err.Error())
		if core.IsTyped(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, &core.UpstreamUnavailableError{Service: info.Provider, Err: err}
	}
	if resp == nil {
		return nil, &core.OutputContractViolationError{Flow: def.Name, Path: "$", Err: fmt.Errorf("empty response")}
	}

	attrs := []any{"flow", def.Name, "model", info.Name, "finish_reason", resp.FinishReason, "duration_ms", time.Since(start).Milliseconds()}
	if resp.Usage != nil {
		attrs = append(attrs, "total_tokens", resp.Usage.TotalTokens)
	}
	i.logger.Debug("model.generate.complete", attrs...)

	if resp.Refusal != nil || resp.FinishReason == model.FinishRefusal {
		reason := ""
		if resp.Refusal != nil {
			reason = resp.Refusal.Reason
		}
		i.logger.Warn("flow.generation.refused", "flow", def.Name, "reason", reason)
		return nil, &core.GenerationRefusedError{Flow: def.Name, Reason: reason}
	}
	return resp, nil
}

// InvokeAs invokes a flow and decodes its output into T through its JSON
// form.
func InvokeAs[T any](ctx context.Context, c Caller, name string, input any) (T, error) {
	out, err := c.Invoke(ctx, name, input)
	if err != nil {
		var zero T
		return zero, err
	}
	result, err := Decode[T](out)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s output: %w", name, err)
	}
	return result, nil
}

// Decode converts a validated flow value (input or output) into T through
// its JSON form. Handler flows use it to work on typed structs.
func Decode[T any](v any) (T, error) {
	var result T
	b, err := json.Marshal(v)
	if err != nil {
		return result, fmt.Errorf("encode: %w", err)
	}
	if err := json.Unmarshal(b, &result); err != nil {
		return result, fmt.Errorf("decode: %w", err)
	}
	return result, nil
}
