// Package guard enforces the single-principal authorization policy: every
// patient-scoped read or write is checked against the one acting identity
// configured for the deployment.
package guard

import (
	"fmt"
	"strings"

	contractx "github.com/medassist-io/medassist/agent/contract"
)

type Guard struct {
	acting string
}

func New(actingIdentity string) *Guard {
	return &Guard{acting: strings.TrimSpace(actingIdentity)}
}

func (g *Guard) ActingIdentity() string {
	return g.acting
}

// Owns reports whether the given occupant is the acting identity.
// Comparison is case-insensitive.
func (g *Guard) Owns(occupant string) bool {
	return strings.EqualFold(strings.TrimSpace(occupant), g.acting)
}

// AuthorizePatient fails with ErrAuthorization unless patient is the acting
// identity. The message is safe to surface: it names the policy, not the
// protected data.
func (g *Guard) AuthorizePatient(patient string) error {
	if g.Owns(patient) {
		return nil
	}
	return fmt.Errorf(
		"%w: current user is %s and cannot access patient %s's information; it is confidential and cannot be disclosed",
		contractx.ErrAuthorization, g.acting, strings.TrimSpace(patient),
	)
}
