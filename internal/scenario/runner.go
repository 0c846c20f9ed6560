package scenario

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"govtoken-lab/internal/access"
	"govtoken-lab/internal/domain"
	"govtoken-lab/internal/idhash"
	"govtoken-lab/internal/observability"
	"govtoken-lab/internal/storage"
)

// Runner errors
var (
	ErrUnknownOp      = errors.New("unknown op kind")
	ErrUnknownRole    = errors.New("unknown role")
	ErrExpectedFailed = errors.New("op expected to fail but succeeded")
	ErrWrongError     = errors.New("op failed with a different error than expected")
)

// defaultBucketMs is the fee revenue aggregation bucket: one minute of
// simulated time.
const defaultBucketMs = 60_000

// Runner replays scenarios against fresh worlds and persists the outcome.
type Runner struct {
	transferStore   storage.TransferRecordStore
	withdrawalStore storage.WithdrawalRecordStore
	feeRevenueStore storage.FeeRevenueStore
	sink            domain.EventSink
	logger          *log.Logger
	bucketMs        int64
}

// RunnerOptions contains configuration for creating a Runner. Stores and
// the sink are optional; a nil store skips that persistence step.
type RunnerOptions struct {
	TransferStore   storage.TransferRecordStore
	WithdrawalStore storage.WithdrawalRecordStore
	FeeRevenueStore storage.FeeRevenueStore
	Sink            domain.EventSink
	Logger          *log.Logger
	BucketMs        int64
}

// NewRunner creates a scenario runner.
func NewRunner(opts RunnerOptions) *Runner {
	r := &Runner{
		transferStore:   opts.TransferStore,
		withdrawalStore: opts.WithdrawalStore,
		feeRevenueStore: opts.FeeRevenueStore,
		sink:            opts.Sink,
		logger:          opts.Logger,
		bucketMs:        opts.BucketMs,
	}
	if r.logger == nil {
		r.logger = log.New(log.Writer(), "[scenario] ", log.LstdFlags)
	}
	if r.bucketMs <= 0 {
		r.bucketMs = defaultBucketMs
	}
	return r
}

// Result summarizes one completed run.
type Result struct {
	RunID       string
	Scenario    string
	OpsApplied  int
	OpsRejected int // ops that failed with their expected error

	Transfers   []*domain.TransferRecord
	Withdrawals []*domain.WithdrawalRecord
	Revenue     []*domain.FeeRevenuePoint

	FinalSupply string
	StartMs     int64
	EndMs       int64
}

// Run builds a world from the scenario's genesis, applies every op in
// order, and persists the records. An op failing without a matching
// ExpectError aborts the run.
func (r *Runner) Run(ctx context.Context, sc *domain.Scenario) (*Result, error) {
	started := time.Now()

	res, err := r.run(ctx, sc)
	if err != nil {
		observability.RecordScenarioRun("failed", time.Since(started).Seconds())
		return nil, err
	}

	observability.RecordScenarioRun("success", time.Since(started).Seconds())
	return res, nil
}

func (r *Runner) run(ctx context.Context, sc *domain.Scenario) (*Result, error) {
	world, err := BuildWorld(sc.Genesis, r.sink)
	if err != nil {
		return nil, fmt.Errorf("build world for %s: %w", sc.Name, err)
	}

	runID := idhash.ComputeRunID(sc.Name, sc.Genesis.StartTimeMs)
	r.logger.Printf("run %s: scenario %q, %d ops", runID, sc.Name, len(sc.Ops))

	res := &Result{
		RunID:    runID,
		Scenario: sc.Name,
		StartMs:  sc.Genesis.StartTimeMs,
	}

	for i, op := range sc.Ops {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		opErr := r.apply(world, res, op)
		observability.RecordOp(op.Kind)

		switch {
		case opErr == nil && op.ExpectError != "":
			return nil, fmt.Errorf("op %d (%s): %w: wanted %q", i, op.Kind, ErrExpectedFailed, op.ExpectError)
		case opErr != nil && op.ExpectError == "":
			return nil, fmt.Errorf("op %d (%s): %w", i, op.Kind, opErr)
		case opErr != nil:
			if !strings.Contains(opErr.Error(), op.ExpectError) {
				return nil, fmt.Errorf("op %d (%s): %w: got %q, wanted %q",
					i, op.Kind, ErrWrongError, opErr.Error(), op.ExpectError)
			}
			res.OpsRejected++
		default:
			res.OpsApplied++
		}
	}

	res.EndMs = world.Clock.NowMs()
	res.FinalSupply = domain.FormatAmount(world.Token.TotalSupply())
	res.Revenue = bucketRevenue(runID, res.Transfers, r.bucketMs)

	if err := r.persist(ctx, res); err != nil {
		return nil, err
	}

	r.logger.Printf("run %s: applied %d ops, rejected %d, %d transfers, %d withdrawals",
		runID, res.OpsApplied, res.OpsRejected, len(res.Transfers), len(res.Withdrawals))
	return res, nil
}

// apply executes one op against the world, recording any produced record.
func (r *Runner) apply(w *World, res *Result, op domain.Op) error {
	auth := access.Auth{Caller: op.Caller}

	switch op.Kind {
	case domain.OpMint:
		amount, err := domain.ParseAmount(op.Amount)
		if err != nil {
			return err
		}
		rec, err := w.Token.Mint(auth, op.To, amount)
		if err != nil {
			return err
		}
		rec.RunID = res.RunID
		res.Transfers = append(res.Transfers, rec)
		return nil

	case domain.OpTransfer:
		amount, err := domain.ParseAmount(op.Amount)
		if err != nil {
			return err
		}
		rec, err := w.Token.Transfer(op.From, op.To, amount)
		if err != nil {
			return err
		}
		rec.RunID = res.RunID
		res.Transfers = append(res.Transfers, rec)
		return nil

	case domain.OpSetBuyFee:
		return w.Token.SetBuyFee(auth, op.Bps)

	case domain.OpSetSellFee:
		return w.Token.SetSellFee(auth, op.Bps)

	case domain.OpSetFeeRecipients:
		recipients := make([]domain.Address, len(op.Splits))
		splits := make([]uint64, len(op.Splits))
		for i, s := range op.Splits {
			recipients[i] = s.Recipient
			splits[i] = s.Bps
		}
		return w.Token.SetFeeRecipients(auth, recipients, splits)

	case domain.OpSetLPPair:
		return w.Token.SetLPPair(auth, op.Account, op.Flag)

	case domain.OpSetFeeExempt:
		return w.Token.SetFeeExempt(auth, op.Accounts, op.Flag)

	case domain.OpGrantRole:
		role, err := parseRole(op.Role)
		if err != nil {
			return err
		}
		if err := w.Roles.Require(auth, access.RoleAdmin); err != nil {
			return err
		}
		w.Roles.Grant(role, op.Account)
		return nil

	case domain.OpRevokeRole:
		role, err := parseRole(op.Role)
		if err != nil {
			return err
		}
		if err := w.Roles.Require(auth, access.RoleAdmin); err != nil {
			return err
		}
		w.Roles.Revoke(role, op.Account)
		return nil

	case domain.OpPause:
		return w.Token.Pause(auth)

	case domain.OpUnpause:
		return w.Token.Unpause(auth)

	case domain.OpWithdrawSwap:
		amount, err := domain.ParseAmount(op.Amount)
		if err != nil {
			return err
		}
		rec, err := w.Treasury.WithdrawWithSwap(auth, amount, op.SlippageBps, op.DeadlineOffsetSec)
		if err != nil {
			return err
		}
		rec.RunID = res.RunID
		res.Withdrawals = append(res.Withdrawals, rec)
		return nil

	case domain.OpWithdrawDirect:
		amount, err := domain.ParseAmount(op.Amount)
		if err != nil {
			return err
		}
		rec, err := w.Treasury.WithdrawDirect(auth, amount)
		if err != nil {
			return err
		}
		rec.RunID = res.RunID
		res.Withdrawals = append(res.Withdrawals, rec)
		return nil

	case domain.OpRecoverToken:
		amount, err := domain.ParseAmount(op.Amount)
		if err != nil {
			return err
		}
		rec, err := w.Treasury.RecoverToken(auth, op.Token, amount)
		if err != nil {
			return err
		}
		rec.RunID = res.RunID
		res.Withdrawals = append(res.Withdrawals, rec)
		return nil

	case domain.OpAdvanceTime:
		w.Clock.Advance(op.AdvanceMs)
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, op.Kind)
	}
}

// persist writes all records produced by a run. Nil stores skip their step.
func (r *Runner) persist(ctx context.Context, res *Result) error {
	if r.transferStore != nil && len(res.Transfers) > 0 {
		if err := r.transferStore.InsertBulk(ctx, res.Transfers); err != nil {
			return fmt.Errorf("persist transfers: %w", err)
		}
	}
	if r.withdrawalStore != nil && len(res.Withdrawals) > 0 {
		if err := r.withdrawalStore.InsertBulk(ctx, res.Withdrawals); err != nil {
			return fmt.Errorf("persist withdrawals: %w", err)
		}
	}
	if r.feeRevenueStore != nil && len(res.Revenue) > 0 {
		if err := r.feeRevenueStore.InsertBulk(ctx, res.Revenue); err != nil {
			return fmt.Errorf("persist fee revenue: %w", err)
		}
	}
	return nil
}

// bucketRevenue aggregates transfer records into fixed time buckets of
// whole-token fee revenue.
func bucketRevenue(runID string, transfers []*domain.TransferRecord, bucketMs int64) []*domain.FeeRevenuePoint {
	buckets := make(map[int64]*domain.FeeRevenuePoint)
	var order []int64

	for _, t := range transfers {
		if t.Class != domain.ClassBuy && t.Class != domain.ClassSell {
			continue
		}
		bucket := (t.Timestamp / bucketMs) * bucketMs
		p, ok := buckets[bucket]
		if !ok {
			p = &domain.FeeRevenuePoint{RunID: runID, BucketMs: bucket}
			buckets[bucket] = p
			order = append(order, bucket)
		}

		p.TransferCount++
		p.Volume += amountFloat(t.Amount)
		p.FeesCollected += amountFloat(t.FeeAmount)
		p.FeesBurned += amountFloat(t.BurnAmount)
		for _, payout := range t.Payouts {
			p.FeesDistributed += amountFloat(payout.Amount)
		}
	}

	points := make([]*domain.FeeRevenuePoint, 0, len(order))
	for _, bucket := range order {
		points = append(points, buckets[bucket])
	}
	return points
}

func amountFloat(raw string) float64 {
	amount, err := domain.ParseAmount(raw)
	if err != nil {
		return 0
	}
	return domain.AmountToFloat(amount)
}

func parseRole(role string) (access.Role, error) {
	switch access.Role(role) {
	case access.RoleAdmin, access.RoleFeeManager, access.RoleExecutor:
		return access.Role(role), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
}
