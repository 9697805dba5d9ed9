package property_tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/propertyinbox/internal/organizer"
	"github.com/teemow/propertyinbox/internal/property"
	"github.com/teemow/propertyinbox/internal/server"
	"github.com/teemow/propertyinbox/internal/simulation"
	"github.com/teemow/propertyinbox/internal/tools/common"
)

const (
	ToolOrganize   = "organize_property_mail"
	ToolFolderName = "property_folder_name"
	ToolSimulate   = "simulate_investment"
)

// Deps holds what the property tools need.
type Deps struct {
	Server    *server.ServerContext
	Extractor *property.Extractor
	Location  *time.Location
	Now       func() time.Time

	Instrumentation common.Instrumentation
}

func (d Deps) withDefaults() Deps {
	if d.Extractor == nil {
		d.Extractor = property.NewExtractor("")
	}
	if d.Location == nil {
		d.Location = organizer.DefaultLocation
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// RegisterPropertyTools registers all property tools with the MCP server.
func RegisterPropertyTools(s *mcpserver.MCPServer, deps Deps, readOnly bool) error {
	if deps.Server == nil {
		return fmt.Errorf("server context is required")
	}
	deps = deps.withDefaults()

	organizeTool := mcp.NewTool(ToolOrganize,
		mcp.WithDescription("Process unprocessed 販売図面 and 住宅地図・路線価図 mails: file attachments into Drive folders, generate reports and label the messages. Returns the run summary."),
	)
	if readOnly {
		s.AddTool(organizeTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return mcp.NewToolResultError("Cannot organize mail in read-only mode. Use --yolo flag to enable write operations."), nil
		})
	} else {
		s.AddTool(organizeTool, mcpserver.ToolHandlerFunc(common.InstrumentedToolHandler(ToolOrganize, deps.Instrumentation,
			func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				return handleOrganize(ctx, request, deps)
			})))
	}

	folderTool := mcp.NewTool(ToolFolderName,
		mcp.WithDescription("Preview the Drive folder name YYYYMMDD_<station>_<number> for a mail subject and body"),
		mcp.WithString("subject",
			mcp.Required(),
			mcp.Description("Mail subject"),
		),
		mcp.WithString("body",
			mcp.Description("Plain-text mail body"),
		),
		mcp.WithString("filenames",
			mcp.Description("Attachment filenames, comma-separated or as an array (e.g., 'Hanbaizumen_12345.pdf')"),
		),
		mcp.WithString("date",
			mcp.Description("Processing date as YYYY-MM-DD (default: today in JST)"),
		),
	)
	s.AddTool(folderTool, mcpserver.ToolHandlerFunc(common.InstrumentedToolHandler(ToolFolderName, deps.Instrumentation,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleFolderName(ctx, request, deps)
		})))

	simulateTool := mcp.NewTool(ToolSimulate,
		mcp.WithDescription("Run the 10-year investment simulation for a property and return metrics and the purchase decision"),
		mcp.WithNumber("price",
			mcp.Required(),
			mcp.Description("Purchase price in yen"),
		),
		mcp.WithNumber("rent",
			mcp.Required(),
			mcp.Description("Monthly full-occupancy rent in yen"),
		),
		mcp.WithNumber("management_fee",
			mcp.Description("Monthly management fee in yen"),
		),
		mcp.WithNumber("reserve_fund",
			mcp.Description("Monthly repair reserve in yen"),
		),
		mcp.WithNumber("total_units",
			mcp.Description("Total units of the building"),
		),
	)
	s.AddTool(simulateTool, mcpserver.ToolHandlerFunc(common.InstrumentedToolHandler(ToolSimulate, deps.Instrumentation,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSimulate(ctx, request)
		})))

	return nil
}

func handleOrganize(ctx context.Context, _ mcp.CallToolRequest, deps Deps) (*mcp.CallToolResult, error) {
	summary, err := deps.Server.Run(ctx, organizer.TriggerMCP)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Run failed: %v", err)), nil
	}
	if summary == nil {
		return mcp.NewToolResultError("Run produced no summary"), nil
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format summary: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func handleFolderName(_ context.Context, request mcp.CallToolRequest, deps Deps) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	subject, ok := args["subject"].(string)
	if !ok || subject == "" {
		return mcp.NewToolResultError("subject is required"), nil
	}
	body, _ := args["body"].(string)

	filenames, err := common.StringList(args["filenames"], "filenames")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	date := deps.Now().In(deps.Location)
	if raw, ok := args["date"].(string); ok && raw != "" {
		parsed, err := time.ParseInLocation("2006-01-02", raw, deps.Location)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid date %q, expected YYYY-MM-DD", raw)), nil
		}
		date = parsed
	}

	msg := &property.Message{Kind: property.KindFloorplan, Subject: subject, Body: body}
	for _, name := range filenames {
		msg.Attachments = append(msg.Attachments, property.Attachment{Filename: name})
	}
	return mcp.NewToolResultText(deps.Extractor.Extract(msg, date).FolderName()), nil
}

func handleSimulate(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	in := simulation.Input{
		Price:         numberArg(args, "price"),
		MonthlyRent:   numberArg(args, "rent"),
		ManagementFee: numberArg(args, "management_fee"),
		ReserveFund:   numberArg(args, "reserve_fund"),
		TotalUnits:    int(numberArg(args, "total_units")),
	}

	result, err := simulation.Run(in)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString(strings.TrimLeft(strings.Join(simulation.SummaryLines(result), "\n"), "\n"))
	b.WriteString("\n\n")
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to format result: %v", err)), nil
	}
	b.Write(out)
	return mcp.NewToolResultText(b.String()), nil
}

// numberArg reads a numeric argument. JSON numbers arrive as float64.
func numberArg(args map[string]interface{}, key string) float64 {
	switch v := args[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
