package domain

// Scenario is a named, deterministic op sequence replayed against a fresh
// world built from Genesis. The same scenario and genesis always produce
// identical records.
type Scenario struct {
	Name    string  `json:"name"`
	Genesis Genesis `json:"genesis"`
	Ops     []Op    `json:"ops"`
}

// Genesis describes the initial world: roles, balances, fee config, the
// treasury pair, and the AMM pools backing the swap path.
type Genesis struct {
	Admin      Address `json:"admin"`
	FeeManager Address `json:"fee_manager"`
	Executor   Address `json:"executor"`

	Balances []GenesisBalance `json:"balances"`
	Fee      FeeConfig        `json:"fee"`
	LPPairs  []Address        `json:"lp_pairs"`
	Exempt   []Address        `json:"exempt"`

	Treasury      TreasuryGenesis `json:"treasury"`
	WrappedNative Address         `json:"wrapped_native"`
	Pools         []PoolGenesis   `json:"pools"`

	StartTimeMs int64 `json:"start_time_ms"`
}

// GenesisBalance seeds one governance-token balance.
type GenesisBalance struct {
	Account Address `json:"account"`
	Amount  string  `json:"amount"`
}

// TreasuryGenesis seeds the treasury account and its base-token funding.
type TreasuryGenesis struct {
	Account     Address `json:"account"`
	Recipient   Address `json:"recipient"`
	BaseToken   Address `json:"base_token"`
	OutputToken Address `json:"output_token"`
	Funding     string  `json:"funding"` // base-token raw units
}

// PoolGenesis seeds one constant-product pair on the simulated router.
type PoolGenesis struct {
	TokenA   Address `json:"token_a"`
	TokenB   Address `json:"token_b"`
	ReserveA string  `json:"reserve_a"`
	ReserveB string  `json:"reserve_b"`
	FeeBps   uint64  `json:"fee_bps"`
}

// Op kind constants
const (
	OpMint             = "mint"
	OpTransfer         = "transfer"
	OpSetBuyFee        = "set_buy_fee"
	OpSetSellFee       = "set_sell_fee"
	OpSetFeeRecipients = "set_fee_recipients"
	OpSetLPPair        = "set_lp_pair"
	OpSetFeeExempt     = "set_fee_exempt"
	OpGrantRole        = "grant_role"
	OpRevokeRole       = "revoke_role"
	OpPause            = "pause"
	OpUnpause          = "unpause"
	OpWithdrawSwap     = "withdraw_swap"
	OpWithdrawDirect   = "withdraw_direct"
	OpRecoverToken     = "recover_token"
	OpAdvanceTime      = "advance_time"
)

// Op is one scenario step. Fields beyond Kind and Caller are op-specific;
// unused fields stay at their zero value in the JSON form.
type Op struct {
	Kind   string  `json:"kind"`
	Caller Address `json:"caller"`

	From     Address   `json:"from,omitempty"`
	To       Address   `json:"to,omitempty"`
	Account  Address   `json:"account,omitempty"`
	Accounts []Address `json:"accounts,omitempty"`
	Token    Address   `json:"token,omitempty"`

	Amount string     `json:"amount,omitempty"`
	Bps    uint64     `json:"bps,omitempty"`
	Splits []FeeSplit `json:"splits,omitempty"`
	Flag   bool       `json:"flag,omitempty"`
	Role   string     `json:"role,omitempty"`

	SlippageBps       uint64 `json:"slippage_bps,omitempty"`
	DeadlineOffsetSec int64  `json:"deadline_offset_sec,omitempty"`
	AdvanceMs         int64  `json:"advance_ms,omitempty"`

	// ExpectError, when set, asserts that the op fails and that the typed
	// error chain contains this substring. The run aborts if it succeeds.
	ExpectError string `json:"expect_error,omitempty"`
}
