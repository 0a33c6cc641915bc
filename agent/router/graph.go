package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	contractx "github.com/medassist-io/medassist/agent/contract"
	conversationx "github.com/medassist-io/medassist/agent/conversation"
)

var (
	ErrInvalidMessage = fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	ErrNilContext     = fmt.Errorf("%w: conversation context is nil", contractx.ErrValidation)
)

type graphState struct {
	Convo *conversationx.Context
	Text  string
	Reply string
}

func (r *Router) compileHandleMessageGraph(
	ctx context.Context,
) (compose.Runnable[GraphInput, GraphOutput], error) {
	graph := compose.NewGraph[GraphInput, GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in GraphInput) (*graphState, error) {
			if in.Convo == nil {
				return nil, ErrNilContext
			}
			text := strings.TrimSpace(in.Text)
			if text == "" {
				return nil, ErrInvalidMessage
			}
			return &graphState{Convo: in.Convo, Text: text}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	// The user turn is audited before inference runs, so a failed turn
	// still leaves its trace in the transcript.
	if err := graph.AddLambdaNode("audit_user_turn",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			if err := r.audit.Append(ctx, r.actingIdentity, contractx.RoleUser, in.Text); err != nil {
				return nil, err
			}
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node audit_user_turn: %w", err)
	}

	if err := graph.AddLambdaNode("run_agent_loop",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			reply, err := r.runLoop(ctx, in.Convo, in.Text)
			if err != nil {
				return nil, err
			}
			in.Reply = reply
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node run_agent_loop: %w", err)
	}

	if err := graph.AddLambdaNode("audit_reply",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			if err := r.audit.Append(ctx, r.actingIdentity, contractx.RoleAssistant, in.Reply); err != nil {
				return nil, err
			}
			return in, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node audit_reply: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (GraphOutput, error) {
			reply := strings.TrimSpace(in.Reply)
			if reply == "" {
				return GraphOutput{}, fmt.Errorf("%w: final answer is empty", contractx.ErrUnresolvedTurn)
			}
			return GraphOutput{Reply: reply}, nil
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "audit_user_turn"},
		{"audit_user_turn", "run_agent_loop"},
		{"run_agent_loop", "audit_reply"},
		{"audit_reply", "finalize_reply"},
		{"finalize_reply", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("router.handle_message"))
	if err != nil {
		return nil, fmt.Errorf("compile handle message graph: %w", err)
	}
	return runner, nil
}
