// Package server exposes the inbound HTTP surface: chat messages, the
// reservation views and transitions, and the audit transcript download.
package server

import (
	"context"

	"github.com/gin-gonic/gin"

	conversationx "github.com/medassist-io/medassist/agent/conversation"
	guardx "github.com/medassist-io/medassist/agent/guard"
	storex "github.com/medassist-io/medassist/clinic/store"
)

const sessionCookie = "medassist_session"

type Config struct {
	Addr string `envconfig:"ADDR" split_words:"true" default:":8080"`
}

// Agent handles one user message within a session conversation.
type Agent interface {
	HandleMessage(ctx context.Context, convo *conversationx.Context, text string) (string, error)
}

// Reservations is the slot surface the handlers need.
type Reservations interface {
	Slot(ctx context.Context, id int64) (*storex.TimeSlot, error)
	Reserve(ctx context.Context, id int64, identity string) (*storex.TimeSlot, error)
	Cancel(ctx context.Context, id int64, identity string) (*storex.TimeSlot, error)
}

// Transcripts reads the persisted audit log for an identity.
type Transcripts interface {
	Read(identity string) (string, error)
}

type Server struct {
	engine       *gin.Engine
	agent        Agent
	sessions     *conversationx.Manager
	reservations Reservations
	transcripts  Transcripts
	guard        *guardx.Guard
}

func New(
	agent Agent,
	sessions *conversationx.Manager,
	reservations Reservations,
	transcripts Transcripts,
	guard *guardx.Guard,
) *Server {
	s := &Server{
		engine:       gin.New(),
		agent:        agent,
		sessions:     sessions,
		reservations: reservations,
		transcripts:  transcripts,
		guard:        guard,
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.POST("/msg", s.handleMessage)
	s.engine.GET("/res", s.handleReservationView)
	s.engine.POST("/setReservation", s.handleSetReservation)
	s.engine.POST("/cancelReservation", s.handleCancelReservation)
	s.engine.GET("/history", s.handleHistory)
}

// Engine exposes the router for tests and embedding.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Run(addr string) error {
	return s.engine.Run(addr)
}
