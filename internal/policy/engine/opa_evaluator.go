package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/rs/zerolog"
)

const lifetimeQuery = "data.session.lifetime"

// Default Rego policy: requested lifetimes pass through unchanged; unset ones take the defaults.
const defaultRegoPolicy = `package session.lifetime

default remember_allowed = true
default session_minutes = 480
default extended_days = 30
default inactivity_minutes = 30

session_minutes = input.requested.session_minutes if {
	input.requested.session_minutes > 0
}

extended_days = input.requested.extended_days if {
	input.requested.extended_days > 0
}

inactivity_minutes = input.requested.inactivity_minutes if {
	input.requested.inactivity_minutes > 0
}
`

// OPAEvaluator evaluates session lifetime policies with OPA Rego.
// Evaluation errors fall back to the requested values with defaults.
type OPAEvaluator struct {
	query  rego.PreparedEvalQuery
	logger zerolog.Logger
}

// NewOPAEvaluator compiles modules (the default policy when none are given).
// Modules must define package session.lifetime.
func NewOPAEvaluator(ctx context.Context, logger zerolog.Logger, modules ...string) (*OPAEvaluator, error) {
	if len(modules) == 0 {
		modules = []string{defaultRegoPolicy}
	}
	files := make(map[string]string, len(modules))
	for i, m := range modules {
		files[fmt.Sprintf("policy_%d.rego", i)] = m
	}
	compiler, err := ast.CompileModules(files)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	q, err := rego.New(
		rego.Query(lifetimeQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy query: %w", err)
	}
	return &OPAEvaluator{query: q, logger: logger}, nil
}

// LoadOPAEvaluator reads a Rego module from path. An empty path uses the default policy.
func LoadOPAEvaluator(ctx context.Context, logger zerolog.Logger, path string) (*OPAEvaluator, error) {
	if path == "" {
		return NewOPAEvaluator(ctx, logger)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return NewOPAEvaluator(ctx, logger, string(b))
}

// HealthCheck evaluates the prepared query against a minimal input.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(LifetimeInput{})))
	if err != nil {
		return fmt.Errorf("eval policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// EvaluateLifetime evaluates the policy for in.
func (e *OPAEvaluator) EvaluateLifetime(ctx context.Context, in LifetimeInput) (Lifetime, error) {
	fallback := defaultLifetime(in)
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(in)))
	if err != nil {
		e.logger.Warn().Err(err).Msg("policy: evaluation failed, using defaults")
		return fallback, nil
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fallback, nil
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return fallback, nil
	}

	out := fallback
	if v, ok := doc["remember_allowed"].(bool); ok {
		out.RememberAllowed = v
	}
	if n, ok := positiveInt(doc["session_minutes"]); ok {
		out.SessionDuration = time.Duration(n) * time.Minute
	}
	if n, ok := positiveInt(doc["extended_days"]); ok {
		out.ExtendedDuration = time.Duration(n) * 24 * time.Hour
	}
	if n, ok := positiveInt(doc["inactivity_minutes"]); ok {
		out.InactivityTimeout = time.Duration(n) * time.Minute
	}
	return out, nil
}

func buildInput(in LifetimeInput) map[string]interface{} {
	return map[string]interface{}{
		"user_id":     in.UserID,
		"device_type": string(in.DeviceType),
		"remember":    in.Remember,
		"requested": map[string]interface{}{
			"session_minutes":    int64(in.SessionDuration / time.Minute),
			"extended_days":      int64(in.ExtendedDuration / (24 * time.Hour)),
			"inactivity_minutes": int64(in.InactivityTimeout / time.Minute),
		},
	}
}

func positiveInt(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil && i > 0
	case float64:
		return int64(n), n > 0
	case int64:
		return n, n > 0
	case int:
		return int64(n), n > 0
	}
	return 0, false
}
