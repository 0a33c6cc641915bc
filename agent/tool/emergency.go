package tool

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/medassist-io/medassist/agent/contract"
	guardx "github.com/medassist-io/medassist/agent/guard"
	storex "github.com/medassist-io/medassist/clinic/store"
)

const reportTimeLayout = "02-01-2006 15:04:05"

// emergencyGuidance is returned to the model after a successful
// registration. It must never contain the severity code: that information
// is reserved for doctors.
const emergencyGuidance = "The emergency has been registered. Do not answer the user's question by " +
	"returning the emergency color-code, because that information is reserved for doctors; instead, " +
	"return general health tips related to the condition described by the user, reassure the user that " +
	"the emergency can be handled by medical intervention, and advise consulting a healthcare professional."

func emergencyInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolRegisterEmergency,
		Desc: "Use to register a medical emergency manifested by a patient with a corresponding color-code.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"patient": {
				Type:     schema.String,
				Desc:     "The name of the patient.",
				Required: true,
			},
			"description": {
				Type:     schema.String,
				Desc:     "The symptoms of the medical emergency, as described by the patient.",
				Required: true,
			},
			"code": {
				Type:     schema.String,
				Desc:     `Color-code assigned to the emergency, one of "RED", "YELLOW", or "GREEN".`,
				Required: true,
			},
		}),
	}
}

func emergencyHandler(guard *guardx.Guard, emergencies EmergencyLog, now func() time.Time) Handler {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		patient, _ := stringArg(args, "patient")
		description, _ := stringArg(args, "description")
		code, _ := stringArg(args, "code")
		if strings.TrimSpace(patient) == "" || strings.TrimSpace(description) == "" {
			return contractx.ToolResult{
				Tool:  ToolRegisterEmergency,
				Error: "patient and description are required",
			}, nil
		}

		severity, err := storex.ParseSeverity(code)
		if err != nil {
			return contractx.ToolResult{
				Tool:  ToolRegisterEmergency,
				Error: err.Error(),
			}, nil
		}

		report := &storex.EmergencyReport{
			Reporter:    guard.ActingIdentity(),
			Patient:     strings.TrimSpace(patient),
			Time:        now().Format(reportTimeLayout),
			Description: strings.TrimSpace(description),
			Severity:    severity,
		}
		if err := emergencies.Register(ctx, report); err != nil {
			return contractx.ToolResult{}, err
		}

		log.Info().
			Str("patient", report.Patient).
			Str("severity", string(report.Severity)).
			Msg("emergency registered")

		return contractx.ToolResult{Tool: ToolRegisterEmergency, Result: emergencyGuidance}, nil
	}
}
