// Package tool is the typed capability registry: a closed set of named
// actions, each with a description, a parameter schema, a handler, and an
// authorization predicate where patient data is involved. The router looks
// actions up by name through this table; there is no open dynamic dispatch.
package tool

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/medassist-io/medassist/agent/contract"
	guardx "github.com/medassist-io/medassist/agent/guard"
	storex "github.com/medassist-io/medassist/clinic/store"
	retrievalx "github.com/medassist-io/medassist/pkg/retrieval"
)

const (
	ToolSearchMedicalInformation = "search_medical_information"
	ToolSearchDoctors            = "search_doctor_by_specialization"
	ToolSearchAvailableSlots     = "search_available_doctor_appointments"
	ToolSearchPatientSlots       = "search_patient_appointments"
	ToolRegisterEmergency        = "register_emergency"
)

// Handler executes one action. Recoverable failures (validation,
// authorization, conflicts) travel in ToolResult.Error; a non-nil error
// means the action's backing infrastructure failed.
type Handler func(ctx context.Context, args map[string]any) (contractx.ToolResult, error)

// Directory is the read-only doctor lookup the catalog needs.
type Directory interface {
	BySpecialization(ctx context.Context, specialization string) ([]storex.Doctor, error)
}

// Schedule is the slot-lookup surface the catalog needs. Mutations go
// through the reservation endpoints, not through actions.
type Schedule interface {
	Available(ctx context.Context, doctor string) ([]storex.TimeSlot, error)
	ForPatient(ctx context.Context, patient, doctor string) ([]storex.TimeSlot, error)
}

// EmergencyLog appends immutable incident records.
type EmergencyLog interface {
	Register(ctx context.Context, report *storex.EmergencyReport) error
}

// Retriever returns ranked passages for a free-text medical query.
type Retriever interface {
	Search(ctx context.Context, query string) ([]retrievalx.Passage, error)
}

type Deps struct {
	Guard       *guardx.Guard
	Directory   Directory
	Schedule    Schedule
	Emergencies EmergencyLog
	Retriever   Retriever
	Now         func() time.Time
}

type definition struct {
	info    *schema.ToolInfo
	handler Handler
}

// Catalog is the closed action table for one deployment.
type Catalog struct {
	order []string
	defs  map[string]definition
}

func NewCatalog(deps Deps) (*Catalog, error) {
	if deps.Guard == nil {
		return nil, fmt.Errorf("%w: guard is required", contractx.ErrValidation)
	}
	if deps.Directory == nil || deps.Schedule == nil || deps.Emergencies == nil {
		return nil, fmt.Errorf("%w: directory, schedule, and emergency stores are required", contractx.ErrValidation)
	}
	if deps.Retriever == nil {
		return nil, fmt.Errorf("%w: retriever is required", contractx.ErrValidation)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	c := &Catalog{defs: make(map[string]definition)}
	c.register(retrievalInfo(), retrievalHandler(deps.Retriever))
	c.register(doctorSearchInfo(), doctorSearchHandler(deps.Directory))
	c.register(availableSlotsInfo(), availableSlotsHandler(deps.Schedule))
	c.register(patientSlotsInfo(), patientSlotsHandler(deps.Guard, deps.Schedule))
	c.register(emergencyInfo(), emergencyHandler(deps.Guard, deps.Emergencies, deps.Now))
	return c, nil
}

func (c *Catalog) register(info *schema.ToolInfo, handler Handler) {
	c.order = append(c.order, info.Name)
	c.defs[info.Name] = definition{info: info, handler: handler}
}

// Infos returns the action schemas in registration order, for tool binding.
func (c *Catalog) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(c.order))
	for _, name := range c.order {
		infos = append(infos, c.defs[name].info)
	}
	return infos
}

// Size is the number of registered actions; the router derives its
// per-message call budget from it.
func (c *Catalog) Size() int {
	return len(c.order)
}

// Has reports whether an action name is registered.
func (c *Catalog) Has(name string) bool {
	_, ok := c.defs[name]
	return ok
}

// Execute runs the named action. An unknown name yields an error
// observation, not a failure.
func (c *Catalog) Execute(ctx context.Context, name string, args map[string]any) (contractx.ToolResult, error) {
	def, ok := c.defs[name]
	if !ok {
		return contractx.ToolResult{
			Tool:  name,
			Error: fmt.Sprintf("tool %q is not available", name),
		}, nil
	}
	return def.handler(ctx, args)
}

func stringArg(args map[string]any, key string) (string, bool) {
	raw, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}
