package guard

import (
	"errors"
	"strings"
	"testing"

	contractx "github.com/medassist-io/medassist/agent/contract"
)

func TestOwnsIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	g := New("Martini")
	for _, occupant := range []string{"Martini", "martini", "MARTINI", "  MaRtInI  "} {
		if !g.Owns(occupant) {
			t.Fatalf("expected %q to match the acting identity", occupant)
		}
	}
	if g.Owns("Russel") {
		t.Fatal("expected a different occupant to be rejected")
	}
	if g.Owns("") {
		t.Fatal("expected an empty occupant to be rejected")
	}
}

func TestAuthorizePatient(t *testing.T) {
	t.Parallel()

	g := New("Martini")
	if err := g.AuthorizePatient("martini"); err != nil {
		t.Fatalf("AuthorizePatient() error = %v", err)
	}

	err := g.AuthorizePatient("Russel")
	if !errors.Is(err, contractx.ErrAuthorization) {
		t.Fatalf("expected ErrAuthorization, got %v", err)
	}
	if !strings.Contains(err.Error(), "Russel") {
		t.Fatalf("expected the refused patient name in the message, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "confidential") {
		t.Fatalf("expected a confidentiality notice, got %q", err.Error())
	}
}
