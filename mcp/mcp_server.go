package mcp

import (
	"context"
	"fmt"
	"strconv"

	"wagelink-backend/services"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the mcp-go server with our business logic
type MCPServer struct {
	mcpServer  *server.MCPServer
	identity   *services.IdentityService
	ledger     *services.LedgerService
	settlement *services.SettlementService
	dispute    *services.DisputeService
}

// NewMCPServer creates a new MCP server using the mcp-go library
func NewMCPServer(identity *services.IdentityService, ledger *services.LedgerService, settlement *services.SettlementService, dispute *services.DisputeService) *MCPServer {
	mcpServer := server.NewMCPServer(
		"Wagelink MCP Server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		mcpServer:  mcpServer,
		identity:   identity,
		ledger:     ledger,
		settlement: settlement,
		dispute:    dispute,
	}

	// Register all tools
	s.registerTools()

	return s
}

// GetMCPServer returns the underlying MCP server for transport setup
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// registerTools registers all MCP tools with the server
func (s *MCPServer) registerTools() {
	s.registerGetWorkerTool()
	s.registerListAssignmentsTool()
	s.registerGetAssignmentTool()
	s.registerPaymentHistoryTool()
	s.registerRaiseDisputeTool()
}

// registerGetWorkerTool creates a tool for looking up a registered worker
func (s *MCPServer) registerGetWorkerTool() {
	tool := mcp.NewTool("get_worker",
		mcp.WithDescription("Look up a registered worker by national ID"),
		mcp.WithString("national_id", mcp.Required(), mcp.Description("12-digit national ID of the worker")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nationalID, err := request.RequireString("national_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		worker, err := s.identity.Lookup(ctx, nationalID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get worker: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Worker details:\n\n%+v", worker)), nil
	})
}

// registerListAssignmentsTool creates a tool for listing assignments
func (s *MCPServer) registerListAssignmentsTool() {
	tool := mcp.NewTool("list_assignments",
		mcp.WithDescription("List work assignments for a worker or a contractor"),
		mcp.WithString("worker", mcp.Description("Worker national ID or identity hash")),
		mcp.WithString("contractor_id", mcp.Description("Contractor identifier")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		worker := toString(args["worker"])
		contractorID := toString(args["contractor_id"])

		if worker == "" && contractorID == "" {
			return mcp.NewToolResultError("either worker or contractor_id is required"), nil
		}

		var (
			assignments interface{}
			err         error
		)
		if worker != "" {
			assignments, err = s.ledger.ListByWorker(ctx, worker)
		} else {
			assignments, err = s.ledger.ListByContractor(ctx, contractorID)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to list assignments: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Assignments:\n\n%+v", assignments)), nil
	})
}

// registerGetAssignmentTool creates a tool for getting a specific assignment
func (s *MCPServer) registerGetAssignmentTool() {
	tool := mcp.NewTool("get_assignment",
		mcp.WithDescription("Get details and current status of a work assignment"),
		mcp.WithNumber("assignment_id", mcp.Required(), mcp.Description("ID of assignment to retrieve")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		id := toInt64(args["assignment_id"])
		if id == 0 {
			return mcp.NewToolResultError("assignment_id is required"), nil
		}

		assignment, err := s.ledger.Get(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get assignment: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Assignment details:\n\n%+v", assignment)), nil
	})
}

// registerPaymentHistoryTool creates a tool for listing a worker's settlements
func (s *MCPServer) registerPaymentHistoryTool() {
	tool := mcp.NewTool("payment_history",
		mcp.WithDescription("List settled payments for a worker, newest first"),
		mcp.WithString("national_id", mcp.Required(), mcp.Description("12-digit national ID of the worker")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		nationalID, err := request.RequireString("national_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		payments, err := s.settlement.PaymentHistory(ctx, nationalID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to get payment history: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Found %d payments:\n\n%+v", len(payments), payments)), nil
	})
}

// registerRaiseDisputeTool creates a tool for freezing an assignment
func (s *MCPServer) registerRaiseDisputeTool() {
	tool := mcp.NewTool("raise_dispute",
		mcp.WithDescription("Raise a dispute on an assignment on behalf of one of its parties"),
		mcp.WithNumber("assignment_id", mcp.Required(), mcp.Description("ID of the assignment")),
		mcp.WithString("caller_id", mcp.Required(), mcp.Description("Contractor ID or worker ID of the disputing party")),
	)

	s.mcpServer.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()

		id := toInt64(args["assignment_id"])
		if id == 0 {
			return mcp.NewToolResultError("assignment_id is required"), nil
		}
		callerID, err := request.RequireString("caller_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		assignment, err := s.dispute.Raise(ctx, id, callerID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to raise dispute: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Dispute raised:\n\n%+v", assignment)), nil
	})
}

// Helper function to convert interface{} to string
func toString(val interface{}) string {
	if str, ok := val.(string); ok {
		return str
	}
	return ""
}

// Helper function to convert interface{} to int64
func toInt64(val interface{}) int64 {
	if i, ok := val.(int64); ok {
		return i
	}
	if i, ok := val.(int); ok {
		return int64(i)
	}
	if f, ok := val.(float64); ok {
		return int64(f)
	}
	if str, ok := val.(string); ok {
		if i, err := strconv.ParseInt(str, 10, 64); err == nil {
			return i
		}
	}
	return 0
}
