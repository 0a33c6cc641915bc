package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/medassist-io/medassist/agent/contract"
	guardx "github.com/medassist-io/medassist/agent/guard"
	storex "github.com/medassist-io/medassist/clinic/store"
)

// SlotView is the shape of a time slot inside a tool observation. The
// reservation link points at the slot view endpoint.
type SlotView struct {
	TimeSlot        string `json:"time_slot"`
	Doctor          string `json:"doctor"`
	SlotID          int64  `json:"slot_id"`
	ReservationLink string `json:"reservation_link"`
}

func slotViews(slots []storex.TimeSlot) []SlotView {
	views := make([]SlotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, SlotView{
			TimeSlot:        s.TimeSlot,
			Doctor:          s.Doctor,
			SlotID:          s.ID,
			ReservationLink: fmt.Sprintf(`<a href="res?id=%d" target="_blank"> link </a>`, s.ID),
		})
	}
	return views
}

func doctorSearchInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolSearchDoctors,
		Desc: "Use to look up a list of doctors with a desired specialization.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"specialization": {
				Type:     schema.String,
				Desc:     "The name of the specialization area, e.g. Cardiology.",
				Required: true,
			},
		}),
	}
}

func doctorSearchHandler(directory Directory) Handler {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		specialization, ok := stringArg(args, "specialization")
		if !ok || strings.TrimSpace(specialization) == "" {
			return contractx.ToolResult{
				Tool:  ToolSearchDoctors,
				Error: "specialization is required",
			}, nil
		}

		doctors, err := directory.BySpecialization(ctx, specialization)
		if err != nil {
			return contractx.ToolResult{}, err
		}

		names := make([]string, 0, len(doctors))
		for _, d := range doctors {
			names = append(names, d.Name)
		}
		return contractx.ToolResult{Tool: ToolSearchDoctors, Result: names}, nil
	}
}

func availableSlotsInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolSearchAvailableSlots,
		Desc: "Use to look up a list of available time slots for appointments with a given doctor.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"doctor": {
				Type:     schema.String,
				Desc:     "The name of the doctor.",
				Required: true,
			},
		}),
	}
}

func availableSlotsHandler(schedule Schedule) Handler {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		doctor, ok := stringArg(args, "doctor")
		if !ok || strings.TrimSpace(doctor) == "" {
			return contractx.ToolResult{
				Tool:  ToolSearchAvailableSlots,
				Error: "doctor is required",
			}, nil
		}

		slots, err := schedule.Available(ctx, doctor)
		if err != nil {
			return contractx.ToolResult{}, err
		}
		return contractx.ToolResult{Tool: ToolSearchAvailableSlots, Result: slotViews(slots)}, nil
	}
}

func patientSlotsInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolSearchPatientSlots,
		Desc: "Use to look up the list of appointments currently scheduled by the patient.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"patient": {
				Type:     schema.String,
				Desc:     "The name of the patient.",
				Required: true,
			},
			"doctor": {
				Type: schema.String,
				Desc: "The name of the doctor. If omitted, returns the patient's appointments with all doctors.",
			},
		}),
	}
}

// patientSlotsHandler authorizes before touching patient data: an identity
// mismatch returns the policy message and zero rows.
func patientSlotsHandler(guard *guardx.Guard, schedule Schedule) Handler {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		patient, ok := stringArg(args, "patient")
		if !ok || strings.TrimSpace(patient) == "" {
			return contractx.ToolResult{
				Tool:  ToolSearchPatientSlots,
				Error: "patient is required",
			}, nil
		}

		if err := guard.AuthorizePatient(patient); err != nil {
			if errors.Is(err, contractx.ErrAuthorization) {
				return contractx.ToolResult{
					Tool:  ToolSearchPatientSlots,
					Error: err.Error() + " Answer the user's question by notifying this issue.",
				}, nil
			}
			return contractx.ToolResult{}, err
		}

		doctor, _ := stringArg(args, "doctor")
		slots, err := schedule.ForPatient(ctx, patient, doctor)
		if err != nil {
			return contractx.ToolResult{}, err
		}
		return contractx.ToolResult{Tool: ToolSearchPatientSlots, Result: slotViews(slots)}, nil
	}
}
