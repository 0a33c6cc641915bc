package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/medassist-io/medassist/agent/contract"
	conversationx "github.com/medassist-io/medassist/agent/conversation"
)

// loopState tracks the explicit per-message state machine:
// AWAITING_ACTION -> EXECUTING_TOOL -> AWAITING_ACTION* -> FINALIZED.
type loopState string

const (
	stateAwaitingAction loopState = "AWAITING_ACTION"
	stateExecutingTool  loopState = "EXECUTING_TOOL"
	stateFinalized      loopState = "FINALIZED"
)

// runLoop appends the user turn, then alternates inference and action
// execution until the model produces a final answer. Each registered action
// may run at most once per message; the call budget is the catalog size
// plus one closing inference call.
func (r *Router) runLoop(ctx context.Context, convo *conversationx.Context, text string) (string, error) {
	convo.Append(contractx.Turn{Role: contractx.RoleUser, Content: text})

	invoked := make(map[string]bool, r.catalog.Size())
	budget := r.catalog.Size() + 1
	reply := ""

	for state, calls := stateAwaitingAction, 0; state != stateFinalized; calls++ {
		if calls == budget {
			return "", fmt.Errorf("%w: action budget of %d exhausted without a final answer", contractx.ErrUnresolvedTurn, budget)
		}
		log.Debug().Str("state", string(state)).Int("call", calls).Msg("router loop")

		msg, err := r.generate(ctx, convo)
		if err != nil {
			return "", err
		}

		if len(msg.ToolCalls) == 0 {
			reply = strings.TrimSpace(msg.Content)
			if reply == "" {
				return "", fmt.Errorf("%w: model produced neither answer nor action", contractx.ErrUnresolvedTurn)
			}
			convo.Append(contractx.Turn{Role: contractx.RoleAssistant, Content: reply})
			state = stateFinalized
			continue
		}

		state = stateExecutingTool
		requests, err := toToolRequests(msg.ToolCalls)
		if err != nil {
			return "", err
		}

		// The request turn must precede its observations when the sequence
		// is replayed; a tool message without the assistant message that
		// carries the matching tool_calls is rejected by the backend.
		convo.Append(contractx.Turn{
			Role:      contractx.RoleAssistant,
			Content:   msg.Content,
			ToolCalls: toContractCalls(msg.ToolCalls),
		})
		for _, req := range requests {
			observation := r.executeOnce(ctx, req, invoked)
			convo.Append(contractx.Turn{
				Role:       contractx.RoleTool,
				Content:    observation,
				ToolCallID: req.CallID,
			})
		}
		state = stateAwaitingAction
	}

	return reply, nil
}

// executeOnce enforces the one-invocation-per-action-per-message rule. A
// repeated or unknown action yields a directive observation without calling
// any handler, so duplicate side effects are impossible within a message.
func (r *Router) executeOnce(ctx context.Context, req contractx.ToolRequest, invoked map[string]bool) string {
	if !r.catalog.Has(req.Tool) {
		return marshalObservation(contractx.ToolResult{
			Tool:  req.Tool,
			Error: fmt.Sprintf("tool %q does not exist; use only the provided tools", req.Tool),
		})
	}
	if invoked[req.Tool] {
		return marshalObservation(contractx.ToolResult{
			Tool: req.Tool,
			Error: fmt.Sprintf(
				"tool %q was already used for this message and must not be used again; answer with the information you already have",
				req.Tool,
			),
		})
	}
	invoked[req.Tool] = true

	result, err := r.catalog.Execute(ctx, req.Tool, req.Args)
	if err != nil {
		log.Error().Err(err).Str("tool", req.Tool).Msg("action execution failed")
		return marshalObservation(contractx.ToolResult{
			Tool:  req.Tool,
			Error: "the tool failed unexpectedly; apologize and suggest trying again later",
		})
	}

	log.Debug().Str("tool", req.Tool).Bool("refused", result.Error != "").Msg("action executed")
	return marshalObservation(result)
}

// generate runs one bounded inference call over the system instructions and
// the context snapshot.
func (r *Router) generate(ctx context.Context, convo *conversationx.Context) (*schema.Message, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	msg, err := r.model.Generate(callCtx, r.buildMessages(convo.Snapshot()))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: inference call timed out after %s", contractx.ErrUnresolvedTurn, r.callTimeout)
		}
		return nil, fmt.Errorf("%w: %v", contractx.ErrModelInvoke, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: empty completion", contractx.ErrModelInvoke)
	}
	return msg, nil
}

func (r *Router) buildMessages(turns []contractx.Turn) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(turns)+1)
	msgs = append(msgs, schema.SystemMessage(r.systemPrompt))
	for _, turn := range turns {
		switch turn.Role {
		case contractx.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(turn.Content, toSchemaCalls(turn.ToolCalls)))
		case contractx.RoleTool:
			msgs = append(msgs, schema.ToolMessage(turn.Content, turn.ToolCallID))
		default:
			msgs = append(msgs, schema.UserMessage(turn.Content))
		}
	}
	return msgs
}

func toContractCalls(calls []schema.ToolCall) []contractx.ToolCall {
	out := make([]contractx.ToolCall, 0, len(calls))
	for _, call := range calls {
		out = append(out, contractx.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return out
}

func toSchemaCalls(calls []contractx.ToolCall) []schema.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]schema.ToolCall, 0, len(calls))
	for _, call := range calls {
		out = append(out, schema.ToolCall{
			ID:       call.ID,
			Function: schema.FunctionCall{Name: call.Name, Arguments: call.Arguments},
		})
	}
	return out
}

func toToolRequests(calls []schema.ToolCall) ([]contractx.ToolRequest, error) {
	reqs := make([]contractx.ToolRequest, 0, len(calls))
	for _, call := range calls {
		name := strings.TrimSpace(call.Function.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool call name is empty", contractx.ErrSchemaViolation)
		}

		args := map[string]any{}
		if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, fmt.Errorf("%w: invalid tool args for tool=%s: %v", contractx.ErrSchemaViolation, name, err)
			}
		}

		reqs = append(reqs, contractx.ToolRequest{CallID: call.ID, Tool: name, Args: args})
	}
	return reqs, nil
}

func marshalObservation(result contractx.ToolResult) string {
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"tool":%q,"error":"observation could not be encoded"}`, result.Tool)
	}
	return string(raw)
}
