package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	conversationx "github.com/medassist-io/medassist/agent/conversation"
	guardx "github.com/medassist-io/medassist/agent/guard"
	llmx "github.com/medassist-io/medassist/agent/llm"
	promptx "github.com/medassist-io/medassist/agent/prompt"
	routerx "github.com/medassist-io/medassist/agent/router"
	toolx "github.com/medassist-io/medassist/agent/tool"
	auditx "github.com/medassist-io/medassist/clinic/audit"
	storex "github.com/medassist-io/medassist/clinic/store"
	configx "github.com/medassist-io/medassist/pkg/config"
	_ "github.com/medassist-io/medassist/pkg/logger/autoload"
	retrievalx "github.com/medassist-io/medassist/pkg/retrieval"
	serverx "github.com/medassist-io/medassist/server"
)

type AppConfig struct {
	ActingIdentity     string        `envconfig:"ACTING_IDENTITY" split_words:"true" default:"Martini"`
	ContextWindow      int           `envconfig:"CONTEXT_WINDOW" split_words:"true" default:"5"`
	SessionIdleTimeout time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" split_words:"true" default:"30m"`
}

func main() {
	ctx := context.Background()
	appCfg := configx.MustNew[AppConfig]("MEDASSIST")

	dbCfg := configx.MustNew[storex.Config]("DATABASE")
	db, err := storex.Open(ctx, *dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if err := storex.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	retrievalCfg := configx.MustNew[retrievalx.Config]("RETRIEVAL")
	retriever, err := retrievalx.NewClient(*retrievalCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("create retrieval client")
	}

	llmCfg := configx.MustNew[llmx.Config]("LLM")
	chatModel, err := llmCfg.New(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("create chat model")
	}

	auditCfg := configx.MustNew[auditx.Config]("AUDIT")
	auditLog := auditx.NewLog(*auditCfg, time.Now)

	identityGuard := guardx.New(appCfg.ActingIdentity)
	schedule := storex.NewScheduleStore(db)

	catalog, err := toolx.NewCatalog(toolx.Deps{
		Guard:       identityGuard,
		Directory:   storex.NewDirectoryStore(db),
		Schedule:    schedule,
		Emergencies: storex.NewEmergencyStore(db),
		Retriever:   retriever,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build action catalog")
	}

	agent, err := routerx.New(chatModel, catalog, auditLog, routerx.Config{
		ActingIdentity: appCfg.ActingIdentity,
		SystemPrompt:   promptx.System(appCfg.ActingIdentity),
		CallTimeout:    llmCfg.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build task router")
	}

	sessions := conversationx.NewManager(appCfg.ContextWindow, time.Now)
	go evictIdleSessions(sessions, appCfg.SessionIdleTimeout)

	serverCfg := configx.MustNew[serverx.Config]("SERVER")
	srv := serverx.New(agent, sessions, schedule, auditLog, identityGuard)
	log.Info().Str("addr", serverCfg.Addr).Str("identity", appCfg.ActingIdentity).Msg("medassist listening")
	if err := srv.Run(serverCfg.Addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func evictIdleSessions(sessions *conversationx.Manager, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	ticker := time.NewTicker(maxIdle / 2)
	defer ticker.Stop()
	for range ticker.C {
		if n := sessions.EvictIdle(maxIdle); n > 0 {
			log.Debug().Int("evicted", n).Msg("idle sessions evicted")
		}
	}
}
