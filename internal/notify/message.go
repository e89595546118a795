package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/charsync/internal/subscription"
	"github.com/dgnsrekt/charsync/internal/synchronizer"
)

// FormatSyncMessage creates a run summary notification body.
func FormatSyncMessage(summary *synchronizer.Summary, duration time.Duration) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Total: %d entities\n", summary.Total))
	sb.WriteString(fmt.Sprintf("Success: %d\n", summary.Succeeded))
	sb.WriteString(fmt.Sprintf("Skipped: %d\n", summary.Skipped))
	sb.WriteString(fmt.Sprintf("Removed: %d\n", summary.Removed))
	sb.WriteString(fmt.Sprintf("Failed: %d\n", summary.Failed))
	sb.WriteString(fmt.Sprintf("Duration: %s", duration.Round(time.Millisecond)))

	// Include first 3 error messages if available
	if len(summary.Errors) > 0 {
		sb.WriteString("\n\nErrors:\n")
		limit := 3
		if len(summary.Errors) < limit {
			limit = len(summary.Errors)
		}
		for i := 0; i < limit; i++ {
			sb.WriteString(fmt.Sprintf("- %s\n", summary.Errors[i]))
		}
		if len(summary.Errors) > 3 {
			sb.WriteString(fmt.Sprintf("... and %d more errors", len(summary.Errors)-3))
		}
	}

	return sb.String()
}

// FormatHaltMessage creates the body of a halted subscription alert.
func FormatHaltMessage(state subscription.State, cause error) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Subscription: %s\n", state.Name))
	sb.WriteString(fmt.Sprintf("Status: %s\n", state.Status))
	sb.WriteString(fmt.Sprintf("Last processed version: %d\n", state.Version))
	sb.WriteString(fmt.Sprintf("Since: %s", state.Time.Format(time.RFC3339)))

	if cause != nil {
		sb.WriteString(fmt.Sprintf("\n\nError: %v", cause))
	}
	return sb.String()
}
