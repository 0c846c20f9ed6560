package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders the fee revenue timeseries as CSV string.
func RenderCSV(rows []RevenueRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("bucket_ms,transfer_count,volume,fees_collected,fees_burned,fees_distributed\n")

	// Rows
	for _, p := range rows {
		sb.WriteString(fmt.Sprintf("%d,%d,%.6f,%.6f,%.6f,%.6f\n",
			p.BucketMs,
			p.TransferCount,
			p.Volume,
			p.FeesCollected,
			p.FeesBurned,
			p.FeesDistributed,
		))
	}

	return sb.String()
}

// RenderWithdrawalsCSV renders treasury withdrawals as CSV string.
func RenderWithdrawalsCSV(rows []WithdrawalRow) string {
	var sb strings.Builder

	sb.WriteString("record_id,kind,token_in,token_out,amount_in,amount_out,recipient,slippage_bps,timestamp_ms\n")

	for _, w := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%.6f,%.6f,%s,%d,%d\n",
			w.RecordID,
			w.Kind,
			w.TokenIn,
			w.TokenOut,
			w.AmountIn,
			w.AmountOut,
			w.Recipient,
			w.SlippageBps,
			w.Timestamp,
		))
	}

	return sb.String()
}
