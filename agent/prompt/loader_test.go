package prompt

import (
	"strings"
	"testing"
)

func TestSystemFillsActingIdentity(t *testing.T) {
	t.Parallel()

	got := System("Martini")
	if strings.Contains(got, "{user_name}") {
		t.Fatal("expected the identity placeholder to be replaced")
	}
	if !strings.Contains(got, "Martini") {
		t.Fatal("expected the acting identity in the instructions")
	}

	for _, tool := range []string{
		"search_doctor_by_specialization",
		"search_available_doctor_appointments",
		"search_patient_appointments",
		"register_emergency",
		"search_medical_information",
	} {
		if !strings.Contains(got, tool) {
			t.Fatalf("expected the instructions to reference %q", tool)
		}
	}
}
