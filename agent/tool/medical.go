package tool

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/medassist-io/medassist/agent/contract"
)

func retrievalInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolSearchMedicalInformation,
		Desc: "Use to look up additional medical context and information to answer the question.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"query": {
				Type:     schema.String,
				Desc:     "The medical question to look up context for.",
				Required: true,
			},
		}),
	}
}

func retrievalHandler(retriever Retriever) Handler {
	return func(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
		query, ok := stringArg(args, "query")
		if !ok || strings.TrimSpace(query) == "" {
			return contractx.ToolResult{
				Tool:  ToolSearchMedicalInformation,
				Error: "query is required",
			}, nil
		}

		passages, err := retriever.Search(ctx, query)
		if err != nil {
			return contractx.ToolResult{}, err
		}
		return contractx.ToolResult{Tool: ToolSearchMedicalInformation, Result: passages}, nil
	}
}
