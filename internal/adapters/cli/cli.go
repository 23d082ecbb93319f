package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"purchase-request-expense/internal/app"
	"purchase-request-expense/internal/core"
)

// Run executes a one-shot CLI command and exits.
// args is os.Args[1:] — the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string) {
	company, err := svc.LoadDefaultCompany(ctx)
	if err != nil {
		log.Fatalf("Failed to load company: %v", err)
	}

	switch args[0] {
	case "requests", "req", "r":
		state := ""
		if len(args) > 1 {
			state = strings.ToUpper(args[1])
		}
		result, err := svc.ListRequests(ctx, company.CompanyCode, state)
		if err != nil {
			log.Fatalf("Failed to list requests: %v", err)
		}
		printRequests(result)

	case "show", "s":
		id := mustID(args, "Usage: app show <request-id>")
		result, err := svc.GetRequest(ctx, id)
		if err != nil {
			log.Fatalf("Failed to load request: %v", err)
		}
		printRequest(result)

	case "submit":
		id := mustID(args, "Usage: app submit <request-id>")
		result, err := svc.SubmitRequest(ctx, id)
		if err != nil {
			log.Fatalf("Submit failed: %v", err)
		}
		fmt.Printf("Request %d is now %s.\n", result.ID, result.State)

	case "approve", "a":
		id := mustID(args, "Usage: app approve <request-id>")
		result, err := svc.ApproveRequest(ctx, id)
		if err != nil {
			log.Fatalf("Approve failed: %v", err)
		}
		number := ""
		if result.RequestNumber != nil {
			number = *result.RequestNumber
		}
		fmt.Printf("Request %d approved as %s.\n", result.ID, number)

	case "stage":
		id := mustID(args, "Usage: app stage <request-id>")
		result, err := svc.StageExpenseItems(ctx, core.LineSelection{RequestIDs: []int{id}})
		if err != nil {
			log.Fatalf("Staging failed: %v", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(result.Items)

	case "convert", "c":
		// convert <request-id> <employee-id>: stage and commit in one shot.
		if len(args) < 3 {
			log.Fatal("Usage: app convert <request-id> <employee-id>")
		}
		requestID, err1 := strconv.Atoi(args[1])
		employeeID, err2 := strconv.Atoi(args[2])
		if err1 != nil || err2 != nil {
			log.Fatal("Usage: app convert <request-id> <employee-id>")
		}
		staged, err := svc.StageExpenseItems(ctx, core.LineSelection{RequestIDs: []int{requestID}})
		if err != nil {
			log.Fatalf("Staging failed: %v", err)
		}
		action, err := svc.CommitExpenses(ctx, app.MakeExpenseRequest{
			EmployeeID: employeeID,
			Items:      staged.Items,
		})
		if err != nil {
			log.Fatalf("Conversion failed: %v", err)
		}
		printViewAction(action)

	case "expenses", "exp", "e":
		result, err := svc.ListExpenses(ctx, company.CompanyCode, nil)
		if err != nil {
			log.Fatalf("Failed to list expenses: %v", err)
		}
		printExpenses(result)

	default:
		log.Fatalf("Unknown command: %s\nAvailable: requests, show, submit, approve, stage, convert, expenses", args[0])
	}
}

func mustID(args []string, usage string) int {
	if len(args) < 2 {
		log.Fatal(usage)
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		log.Fatal(usage)
	}
	return id
}

func printRequests(result *app.RequestListResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 72))
	fmt.Printf("  PURCHASE REQUESTS — %s\n", result.CompanyCode)
	fmt.Println(strings.Repeat("=", 72))
	fmt.Printf("  %-6s %-14s %-12s %-24s %s\n", "ID", "NUMBER", "STATE", "REQUESTED BY", "DESCRIPTION")
	fmt.Println(strings.Repeat("-", 72))
	for _, pr := range result.Requests {
		number := "—"
		if pr.RequestNumber != nil {
			number = *pr.RequestNumber
		}
		fmt.Printf("  %-6d %-14s %-12s %-24s %s\n", pr.ID, number, pr.State, pr.RequestedByName, pr.Description)
	}
	fmt.Println(strings.Repeat("=", 72))
}

func printRequest(pr *app.RequestResult) {
	number := "—"
	if pr.RequestNumber != nil {
		number = *pr.RequestNumber
	}
	fmt.Println()
	fmt.Printf("Request %d  %s  [%s]\n", pr.ID, number, pr.State)
	fmt.Printf("Requested by: %s\n", pr.RequestedByName)
	if pr.PickingTypeName != nil {
		fmt.Printf("Picking type: %s\n", *pr.PickingTypeName)
	}
	fmt.Printf("Expenses: %d (total %s)\n", pr.ExpenseCount, pr.ExpenseTotal.StringFixed(2))
	fmt.Println(strings.Repeat("-", 72))
	fmt.Printf("  %-6s %-28s %10s %10s %12s\n", "LINE", "DESCRIPTION", "QTY", "PENDING", "EST. COST")
	for _, l := range pr.Lines {
		fmt.Printf("  %-6d %-28s %10s %10s %12s\n",
			l.ID, l.Description, l.ProductQty.StringFixed(2),
			l.PendingQtyToReceive.StringFixed(2), l.EstimatedCost.StringFixed(2))
	}
}

func printExpenses(result *app.ExpenseListResult) {
	fmt.Println()
	fmt.Println(strings.Repeat("=", 72))
	fmt.Printf("  EXPENSES — %s\n", result.CompanyCode)
	fmt.Println(strings.Repeat("=", 72))
	fmt.Printf("  %-6s %-24s %10s %12s %12s %s\n", "ID", "DESCRIPTION", "QTY", "UNIT AMT", "TOTAL", "REF")
	fmt.Println(strings.Repeat("-", 72))
	for _, x := range result.Expenses {
		fmt.Printf("  %-6d %-24s %10s %12s %12s %s\n",
			x.ID, x.Description, x.Quantity.StringFixed(2),
			x.UnitAmount.StringFixed(2), x.TotalAmount.StringFixed(2), x.Reference)
	}
	fmt.Println(strings.Repeat("=", 72))
}

func printViewAction(action *core.ViewAction) {
	if action.ViewMode == "form" {
		fmt.Printf("Created 1 %s (id %d).\n", action.Entity, action.ResID)
		return
	}
	fmt.Printf("Created %d %ss (ids %v).\n", len(action.RecordIDs), action.Entity, action.RecordIDs)
}
