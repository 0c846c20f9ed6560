package scenario

import (
	"fmt"

	"govtoken-lab/internal/access"
	"govtoken-lab/internal/amm"
	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/ledger"
	"govtoken-lab/internal/token"
	"govtoken-lab/internal/treasury"
)

// routerAccount is the fixed identity the simulated router trades under.
var routerAccount = domain.MustParseAddress("0x00000000000000000000000000000000000f0f0f")

// World is a fully wired simulation universe built from a Genesis: the
// governance token with its ledger, the role and pause collaborators, the
// token bank backing the AMM, the simulated router, and the treasury.
type World struct {
	Clock    *Clock
	Ledger   *ledger.Ledger
	Roles    *access.Roles
	Gate     *access.Gate
	Token    *token.Token
	Bank     *amm.Bank
	Router   *amm.SimRouter
	Treasury *treasury.Treasury
}

// BuildWorld constructs a world from genesis state. The sink receives every
// event the token and treasury emit during the run.
func BuildWorld(g domain.Genesis, sink domain.EventSink) (*World, error) {
	clock := NewClock(g.StartTimeMs)
	roles := access.NewRoles()
	gate := access.NewGate()

	if !g.Admin.IsZero() {
		roles.Grant(access.RoleAdmin, g.Admin)
	}
	if !g.FeeManager.IsZero() {
		roles.Grant(access.RoleFeeManager, g.FeeManager)
	}
	if !g.Executor.IsZero() {
		roles.Grant(access.RoleExecutor, g.Executor)
	}

	led := ledger.New()
	tok := token.New(token.Options{
		Ledger: led,
		Roles:  roles,
		Gate:   gate,
		Sink:   sink,
		Now:    clock.NowMs,
		Fee:    g.Fee,
	})

	for _, b := range g.Balances {
		amount, err := domain.ParseAmount(b.Amount)
		if err != nil {
			return nil, fmt.Errorf("genesis balance for %s: %w", b.Account, err)
		}
		if err := led.Mint(b.Account, amount); err != nil {
			return nil, fmt.Errorf("genesis balance for %s: %w", b.Account, err)
		}
	}

	// Genesis flags bypass the admin entry points: there is no caller yet.
	for _, p := range g.LPPairs {
		if err := tok.SetLPPair(access.Auth{Caller: g.Admin}, p, true); err != nil {
			return nil, fmt.Errorf("genesis lp pair %s: %w", p, err)
		}
	}
	if len(g.Exempt) > 0 {
		if err := tok.SetFeeExempt(access.Auth{Caller: g.Admin}, g.Exempt, true); err != nil {
			return nil, fmt.Errorf("genesis exemptions: %w", err)
		}
	}

	bank := amm.NewBank()
	router := amm.NewSimRouter(routerAccount, bank, g.WrappedNative, func() int64 {
		return clock.NowMs() / 1000
	})
	for _, p := range g.Pools {
		reserveA, err := domain.ParseAmount(p.ReserveA)
		if err != nil {
			return nil, fmt.Errorf("pool %s/%s reserve a: %w", p.TokenA, p.TokenB, err)
		}
		reserveB, err := domain.ParseAmount(p.ReserveB)
		if err != nil {
			return nil, fmt.Errorf("pool %s/%s reserve b: %w", p.TokenA, p.TokenB, err)
		}
		if err := router.AddPair(p.TokenA, p.TokenB, reserveA, reserveB, p.FeeBps); err != nil {
			return nil, fmt.Errorf("pool %s/%s: %w", p.TokenA, p.TokenB, err)
		}
	}

	tre := treasury.New(treasury.Options{
		Account: g.Treasury.Account,
		Bank:    bank,
		Router:  router,
		Roles:   roles,
		Gate:    gate,
		Config: domain.TreasuryConfig{
			Recipient:   g.Treasury.Recipient,
			BaseToken:   g.Treasury.BaseToken,
			OutputToken: g.Treasury.OutputToken,
		},
		Sink:  sink,
		NowMs: clock.NowMs,
	})

	if g.Treasury.Funding != "" {
		funding, err := domain.ParseAmount(g.Treasury.Funding)
		if err != nil {
			return nil, fmt.Errorf("treasury funding: %w", err)
		}
		bank.Register(g.Treasury.BaseToken)
		if err := bank.Mint(g.Treasury.BaseToken, g.Treasury.Account, funding); err != nil {
			return nil, fmt.Errorf("treasury funding: %w", err)
		}
	}

	return &World{
		Clock:    clock,
		Ledger:   led,
		Roles:    roles,
		Gate:     gate,
		Token:    tok,
		Bank:     bank,
		Router:   router,
		Treasury: tre,
	}, nil
}
