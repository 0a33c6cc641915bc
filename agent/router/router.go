// Package router drives the per-message agent loop: it decides, turn by
// turn, whether the assistant answers directly or invokes a registered
// action, enforcing at most one invocation per action per incoming message
// and a hard iteration budget before the turn fails recoverably.
package router

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/medassist-io/medassist/agent/contract"
	conversationx "github.com/medassist-io/medassist/agent/conversation"
	toolx "github.com/medassist-io/medassist/agent/tool"
)

const defaultCallTimeout = 30 * time.Second

type Config struct {
	// ActingIdentity keys the audit transcript.
	ActingIdentity string
	SystemPrompt   string
	// CallTimeout bounds each inference call; expiry fails the turn with
	// ErrUnresolvedTurn instead of hanging the session.
	CallTimeout time.Duration
}

type Router struct {
	catalog *toolx.Catalog
	model   model.ToolCallingChatModel
	audit   contractx.AuditLog

	graphRunner compose.Runnable[GraphInput, GraphOutput]

	actingIdentity string
	systemPrompt   string
	callTimeout    time.Duration
	now            func() time.Time
}

type GraphInput struct {
	Convo *conversationx.Context
	Text  string
}

type GraphOutput struct {
	Reply string
}

func New(
	chatModel model.ToolCallingChatModel,
	catalog *toolx.Catalog,
	audit contractx.AuditLog,
	cfg Config,
) (*Router, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}
	if catalog == nil || catalog.Size() == 0 {
		return nil, errors.New("a non-empty action catalog is required")
	}
	if audit == nil {
		audit = noopAuditLog{}
	}

	boundModel, err := chatModel.WithTools(catalog.Infos())
	if err != nil {
		return nil, errors.Join(contractx.ErrModelInvoke, err)
	}

	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}

	r := &Router{
		catalog:        catalog,
		model:          boundModel,
		audit:          audit,
		actingIdentity: strings.TrimSpace(cfg.ActingIdentity),
		systemPrompt:   strings.TrimSpace(cfg.SystemPrompt),
		callTimeout:    callTimeout,
		now:            time.Now,
	}

	graphRunner, err := r.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	r.graphRunner = graphRunner
	return r, nil
}

// HandleMessage runs one incoming user message to completion and returns
// the final answer. The caller must hold the session's single-flight lock
// for the whole call; the conversation context is mutated here.
func (r *Router) HandleMessage(ctx context.Context, convo *conversationx.Context, text string) (string, error) {
	out, err := r.graphRunner.Invoke(ctx, GraphInput{Convo: convo, Text: text})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

type noopAuditLog struct{}

func (noopAuditLog) Append(context.Context, string, contractx.Role, string) error {
	return nil
}
