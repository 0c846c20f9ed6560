package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Run Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Run: %s\n\n", r.RunID))

	// Transfer Summary
	sb.WriteString("## Transfer Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Transfers | %d |\n", r.TransferSummary.TotalTransfers))
	sb.WriteString(fmt.Sprintf("| Fee-Bearing Transfers | %d |\n", r.TransferSummary.FeeBearing))
	sb.WriteString(fmt.Sprintf("| Volume | %.6f |\n", r.TransferSummary.Volume))
	sb.WriteString(fmt.Sprintf("| Fees Collected | %.6f |\n", r.TransferSummary.FeesCollected))
	sb.WriteString(fmt.Sprintf("| Fees Burned | %.6f |\n", r.TransferSummary.FeesBurned))
	sb.WriteString(fmt.Sprintf("| Fees Distributed | %.6f |\n", r.TransferSummary.FeesDistributed))
	sb.WriteString(fmt.Sprintf("| First Transfer (ms) | %d |\n", r.TransferSummary.FirstMs))
	sb.WriteString(fmt.Sprintf("| Last Transfer (ms) | %d |\n", r.TransferSummary.LastMs))
	sb.WriteString("\n")

	// Class Breakdown
	sb.WriteString("## Transfers by Class\n\n")
	if len(r.ClassBreakdown) > 0 {
		sb.WriteString("| Class | Count | Volume | Fees |\n")
		sb.WriteString("|-------|-------|--------|------|\n")
		for _, c := range r.ClassBreakdown {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.6f | %.6f |\n",
				c.Class, c.Count, c.Volume, c.Fees))
		}
	} else {
		sb.WriteString("No transfers recorded.\n")
	}
	sb.WriteString("\n")

	// Fee Recipients
	sb.WriteString("## Fee Recipients\n\n")
	if len(r.FeeRecipients) > 0 {
		sb.WriteString("| Recipient | Received |\n")
		sb.WriteString("|-----------|----------|\n")
		for _, rcpt := range r.FeeRecipients {
			sb.WriteString(fmt.Sprintf("| %s | %.6f |\n", rcpt.Recipient, rcpt.Received))
		}
	} else {
		sb.WriteString("No fee payouts recorded.\n")
	}
	sb.WriteString("\n")

	// Withdrawals
	sb.WriteString("## Treasury Withdrawals\n\n")
	if len(r.Withdrawals) > 0 {
		sb.WriteString("| Kind | Token In | Token Out | Amount In | Amount Out | Recipient | Slippage |\n")
		sb.WriteString("|------|----------|-----------|-----------|------------|-----------|----------|\n")
		for _, w := range r.Withdrawals {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %.6f | %.6f | %s | %d |\n",
				w.Kind, w.TokenIn, w.TokenOut, w.AmountIn, w.AmountOut, w.Recipient, w.SlippageBps))
		}
	} else {
		sb.WriteString("No withdrawals recorded.\n")
	}
	sb.WriteString("\n")

	// Revenue Timeseries
	sb.WriteString("## Fee Revenue Timeseries\n\n")
	if len(r.Revenue) > 0 {
		sb.WriteString("| Bucket (ms) | Transfers | Volume | Collected | Burned | Distributed |\n")
		sb.WriteString("|-------------|-----------|--------|-----------|--------|-------------|\n")
		for _, p := range r.Revenue {
			sb.WriteString(fmt.Sprintf("| %d | %d | %.6f | %.6f | %.6f | %.6f |\n",
				p.BucketMs, p.TransferCount, p.Volume, p.FeesCollected, p.FeesBurned, p.FeesDistributed))
		}
	} else {
		sb.WriteString("No fee revenue recorded.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
