package domain

// TreasuryConfig holds the treasury's swap pair and payout target. The
// router itself is wired as a collaborator object, not stored here.
type TreasuryConfig struct {
	Recipient   Address `json:"recipient"`
	BaseToken   Address `json:"base_token"`
	OutputToken Address `json:"output_token"`
}
