// Package tools is the declarative tool registry (C6) the LLM orchestrator
// drives mid-response: each tool has a unique name, a one-line description
// used by the model for tool selection, a single string input parameter,
// and an executor that always returns a human-readable string, never an
// error (spec.md §4.6). Grounded on the teacher's internal/tools registry
// shape (name/description/executor map, no class-based polymorphism) and
// original_source/src/api/routes/players.py for player_stats'
// disambiguation behavior.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jamesfry/footballgpt/internal/llm"
)

// Tool is a single agent-invocable capability. Execute never returns an
// error: failures are captured and rendered as part of the returned
// string so the agent loop never has to handle a tool-execution error
// type.
type Tool interface {
	Name() string
	Description() string
	ParamName() string
	Execute(ctx context.Context, input string) string
}

// Registry is an immutable-after-construction mapping from tool name to
// implementation, matching spec.md §4.6's "registry is a mapping from
// name to (description, executor)".
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds a Registry from a fixed set of tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
		r.order = append(r.order, t.Name())
	}
	return r
}

// Schemas renders the registry as llm.ToolSchema values in registration
// order, for handing to a Provider.
func (r *Registry) Schemas() []llm.ToolSchema {
	out := make([]llm.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, llm.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					t.ParamName(): map[string]any{"type": "string"},
				},
				"required": []string{t.ParamName()},
			},
		})
	}
	return out
}

// Execute looks up a tool by name and runs it with the single string
// argument decoded from a JSON object ({"<param>": "..."}). An unknown
// tool name or malformed argument payload is captured as a result string,
// never an error, consistent with spec.md §4.6: "Errors are captured and
// returned as human-readable strings (never thrown into the agent loop)."
func (r *Registry) Execute(ctx context.Context, name string, rawArgs json.RawMessage) string {
	t, ok := r.tools[name]
	if !ok {
		return fmt.Sprintf("unknown tool %q", name)
	}

	var args map[string]string
	if len(rawArgs) > 0 {
		if err := json.Unmarshal(rawArgs, &args); err != nil {
			return fmt.Sprintf("could not parse arguments for %s: %v", name, err)
		}
	}
	input := args[t.ParamName()]
	return t.Execute(ctx, input)
}
