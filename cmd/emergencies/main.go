// Command emergencies prints the registered emergency reports so on-call
// staff can review incidents without touching the database directly.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	storex "github.com/medassist-io/medassist/clinic/store"
	configx "github.com/medassist-io/medassist/pkg/config"
	_ "github.com/medassist-io/medassist/pkg/logger/autoload"
)

func main() {
	ctx := context.Background()

	dbCfg := configx.MustNew[storex.Config]("DATABASE")
	db, err := storex.Open(ctx, *dbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer db.Close()

	reports, err := storex.NewEmergencyStore(db).List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list emergencies")
	}
	if len(reports) == 0 {
		fmt.Println("no emergencies registered")
		return
	}

	for _, r := range reports {
		fmt.Fprintf(os.Stdout, "[%s] %s patient=%s reported_by=%s\n  %s\n",
			r.Time, r.Severity, r.Patient, r.Reporter, r.Description)
	}
}
