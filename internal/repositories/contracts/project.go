package contracts

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/TitanInd/escrow-bridge/internal/lib"
	"gitlab.com/TitanInd/escrow-bridge/internal/usererr"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"
)

// ProjectContract drives the escrow workflow of a deployed GGProject.
// All preconditions are checked against fresh on-chain reads before sending.
type ProjectContract struct {
	*BaseContract
	opts ProjectOptions
}

func BindProject(ctx context.Context, env *ContractEnv, address common.Address, opts ProjectOptions) (*ProjectContract, error) {
	base, err := Bind(ctx, env, address)
	if err != nil {
		return nil, err
	}
	return &ProjectContract{BaseContract: base, opts: opts}, nil
}

func (p DeployParams) validate() error {
	zero := common.Address{}
	switch {
	case p.TokenAddress == zero:
		return usererr.New(usererr.InvalidData, "token address is required")
	case p.ClientAddress == zero:
		return usererr.New(usererr.InvalidData, "client address is required")
	case p.ApprovalCommissionBeneficiaryAddress == zero:
		return usererr.New(usererr.InvalidData, "approval commission beneficiary address is required")
	case p.DisapprovalCommissionBeneficiaryAddress == zero:
		return usererr.New(usererr.InvalidData, "disapproval commission beneficiary address is required")
	case p.ApprovalCommissionFractionThousands > MaxCommissionFractionThousands:
		return usererr.New(usererr.InvalidData, "approval commission fraction %d exceeds %d thousands", p.ApprovalCommissionFractionThousands, MaxCommissionFractionThousands)
	case p.DisapprovalCommissionFractionThousands > MaxCommissionFractionThousands:
		return usererr.New(usererr.InvalidData, "disapproval commission fraction %d exceeds %d thousands", p.DisapprovalCommissionFractionThousands, MaxCommissionFractionThousands)
	case p.TotalWorkItems == 0:
		return usererr.New(usererr.InvalidData, "total work items must be positive")
	case p.WorkItemPrice == nil || p.WorkItemPrice.Sign() <= 0:
		return usererr.New(usererr.InvalidData, "work item price must be positive")
	}
	return nil
}

func (p DeployParams) args() []interface{} {
	return []interface{}{
		p.TokenAddress,
		p.ClientAddress,
		p.ApprovalCommissionBeneficiaryAddress,
		p.DisapprovalCommissionBeneficiaryAddress,
		new(big.Int).SetUint64(p.ApprovalCommissionFractionThousands),
		new(big.Int).SetUint64(p.DisapprovalCommissionFractionThousands),
		new(big.Int).SetUint64(p.TotalWorkItems),
		p.WorkItemPrice,
		new(big.Int).SetUint64(p.AutoApprovalTimeoutSec),
	}
}

func DeployProject(ctx context.Context, env *ContractEnv, params DeployParams, opts ProjectOptions) (*ProjectContract, *TxResult, error) {
	if err := params.validate(); err != nil {
		return nil, nil, err
	}
	base, res, err := Deploy(ctx, env, params.args()...)
	if err != nil {
		return nil, res, err
	}
	return &ProjectContract{BaseContract: base, opts: opts}, res, nil
}

func EstimateProjectDeployGas(ctx context.Context, env *ContractEnv, params DeployParams) (uint64, error) {
	if err := params.validate(); err != nil {
		return 0, err
	}
	return EstimateDeployGas(ctx, env, params.args()...)
}

func (p *ProjectContract) State(ctx context.Context) (State, error) {
	out, err := p.Call(ctx, "state")
	if err != nil {
		return 0, err
	}
	state, err := outputAt[uint8](out, 0)
	return State(state), err
}

func (p *ProjectContract) Client(ctx context.Context) (common.Address, error) {
	out, err := p.Call(ctx, "client")
	if err != nil {
		return common.Address{}, err
	}
	return addressAt(out, 0)
}

func (p *ProjectContract) Owner(ctx context.Context) (common.Address, error) {
	out, err := p.Call(ctx, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return addressAt(out, 0)
}

// Describe reads the contract summary together with its owner and client
func (p *ProjectContract) Describe(ctx context.Context) (*ProjectDescription, error) {
	var (
		out    []interface{}
		owner  common.Address
		client common.Address
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out, err = p.Call(gctx, "describe")
		return err
	})
	g.Go(func() (err error) {
		owner, err = p.Owner(gctx)
		return err
	})
	g.Go(func() (err error) {
		client, err = p.Client(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return decodeDescription(out, owner, client)
}

func decodeDescription(out []interface{}, owner, client common.Address) (*ProjectDescription, error) {
	d := &ProjectDescription{Owner: owner, Client: client}

	state, err := outputAt[uint8](out, 0)
	if err != nil {
		return nil, err
	}
	d.State = State(state)

	if d.TotalWorkItems, err = uint64At(out, 1); err != nil {
		return nil, err
	}
	if d.WorkItemPrice, err = bigAt(out, 2); err != nil {
		return nil, err
	}
	if d.TokenBalance, err = bigAt(out, 3); err != nil {
		return nil, err
	}
	if d.WorkItemsBalance, err = uint64At(out, 4); err != nil {
		return nil, err
	}
	if d.WorkItemsLeft, err = uint64At(out, 5); err != nil {
		return nil, err
	}
	if d.RequiredInitialTokenBalance, err = bigAt(out, 6); err != nil {
		return nil, err
	}
	if d.CanFinalize, err = outputAt[bool](out, 7); err != nil {
		return nil, err
	}
	if d.CanForceFinalize, err = outputAt[bool](out, 8); err != nil {
		return nil, err
	}
	forceAt, err := uint64At(out, 9)
	if err != nil {
		return nil, err
	}
	if forceAt > 0 {
		d.CanForceFinalizeAt = time.Unix(int64(forceAt), 0).UTC()
	}

	return d, nil
}

func (p *ProjectContract) GetPerformance(ctx context.Context) (Performance, error) {
	out, err := p.Call(ctx, "getPerformance")
	if err != nil {
		return nil, err
	}

	addresses, err := outputAt[[]common.Address](out, 0)
	if err != nil {
		return nil, err
	}
	columns := make([][]*big.Int, 3)
	for i := range columns {
		if columns[i], err = outputAt[[]*big.Int](out, i+1); err != nil {
			return nil, err
		}
		if len(columns[i]) != len(addresses) {
			return nil, fmt.Errorf("%w: performance column %d has %d values for %d workers", ErrUnexpectedOutput, i, len(columns[i]), len(addresses))
		}
	}

	perf := make(Performance, len(addresses))
	for i, addr := range addresses {
		var w WorkerPerformance
		if w.TotalItems, err = toUint64(columns[0][i]); err != nil {
			return nil, err
		}
		if w.ApprovedItems, err = toUint64(columns[1][i]); err != nil {
			return nil, err
		}
		if w.DeclinedItems, err = toUint64(columns[2][i]); err != nil {
			return nil, err
		}
		perf[addr] = w
	}
	return perf, nil
}

// Status reads description and performance concurrently
func (p *ProjectContract) Status(ctx context.Context) (*ProjectStatus, error) {
	var status ProjectStatus

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		status.Description, err = p.Describe(gctx)
		return err
	})
	g.Go(func() (err error) {
		status.Performance, err = p.GetPerformance(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &status, nil
}

func (p *ProjectContract) Activate(ctx context.Context) (*TxResult, error) {
	d, err := p.Describe(ctx)
	if err != nil {
		return nil, err
	}

	if p.Account() != d.Client {
		return nil, usererr.New(usererr.Unauthorized, "only client %s can activate the contract, acting account is %s", d.Client, p.Account())
	}
	if d.State != StateNew {
		return nil, usererr.New(usererr.InvalidContractState, "contract can be activated only in state %s, current state is %s", StateNew, d.State)
	}
	required := new(big.Int).Mul(d.WorkItemPrice, new(big.Int).SetUint64(d.TotalWorkItems))
	if d.TokenBalance.Cmp(required) < 0 {
		return nil, usererr.New(usererr.InsufficientTokenBalance, "contract token balance %s is less than required %s", d.TokenBalance, required)
	}

	return p.Invoke(ctx, "activate")
}

// UpdateTotals sets the number of completed items per worker. Workers are sent
// in address order, chunks may be in flight concurrently.
func (p *ProjectContract) UpdateTotals(ctx context.Context, totals map[common.Address]uint64) ([]*TxResult, error) {
	if len(totals) == 0 {
		return nil, usererr.New(usererr.InvalidData, "no workers to update")
	}

	d, err := p.Describe(ctx)
	if err != nil {
		return nil, err
	}
	if p.Account() != d.Owner {
		return nil, usererr.New(usererr.Unauthorized, "only owner %s can update totals, acting account is %s", d.Owner, p.Account())
	}
	if d.State != StateActive {
		return nil, usererr.New(usererr.InvalidContractState, "totals can be updated only in state %s, current state is %s", StateActive, d.State)
	}

	chunks := lib.SplitToChunks(sortedAddresses(totals), p.opts.TotalsChunkSize)
	results := make([]*TxResult, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	if p.opts.TotalsConcurrency > 0 {
		g.SetLimit(p.opts.TotalsConcurrency)
	}
	for i, chunk := range chunks {
		i, chunk := i, chunk
		values := make([]uint64, len(chunk))
		for j, addr := range chunk {
			values[j] = totals[addr]
		}
		g.Go(func() (err error) {
			results[i], err = p.Invoke(gctx, "updateTotals", chunk, bigSlice(values))
			if err != nil {
				return fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return compactResults(results), err
	}

	p.log.Infof("updated totals of %d workers in %d transactions", len(totals), len(chunks))
	return results, nil
}

// UpdatePerformance records approved and declined items. Workers whose scores
// already match are skipped, chunks are sent one after another.
func (p *ProjectContract) UpdatePerformance(ctx context.Context, update map[common.Address]PerformanceUpdate) ([]*TxResult, error) {
	if len(update) == 0 {
		return nil, usererr.New(usererr.InvalidData, "no workers to update")
	}

	status, err := p.Status(ctx)
	if err != nil {
		return nil, err
	}
	d := status.Description

	if d.State != StateActive {
		return nil, usererr.New(usererr.InvalidContractState, "performance can be updated only in state %s, current state is %s", StateActive, d.State)
	}
	if p.Account() != d.Client {
		return nil, usererr.New(usererr.Unauthorized, "only client %s can update performance, acting account is %s", d.Client, p.Account())
	}

	var changed []common.Address
	for _, addr := range sortedAddresses(update) {
		next := update[addr]
		cur, ok := status.Performance[addr]
		if !ok {
			return nil, usererr.New(usererr.InvalidData, "address %s has no completed work", addr)
		}
		if next.ApprovedItems < cur.ApprovedItems {
			return nil, usererr.New(usererr.InvalidData, "address %s: approved items %d are less than already approved %d", addr, next.ApprovedItems, cur.ApprovedItems)
		}
		if next.DeclinedItems < cur.DeclinedItems {
			return nil, usererr.New(usererr.InvalidData, "address %s: declined items %d are less than already declined %d", addr, next.DeclinedItems, cur.DeclinedItems)
		}
		if next.ApprovedItems > cur.TotalItems || next.DeclinedItems != cur.TotalItems-next.ApprovedItems {
			return nil, usererr.New(usererr.InvalidData, "address %s: approved %d and declined %d items do not add up to total %d", addr, next.ApprovedItems, next.DeclinedItems, cur.TotalItems)
		}
		if next.ApprovedItems == cur.ApprovedItems && next.DeclinedItems == cur.DeclinedItems {
			continue
		}
		changed = append(changed, addr)
	}

	if len(changed) == 0 {
		p.log.Infof("performance of %d workers is already up to date", len(update))
		return []*TxResult{}, nil
	}

	chunks := lib.SplitToChunks(changed, p.opts.PerformanceChunkSize)
	results := make([]*TxResult, 0, len(chunks))
	for i, chunk := range chunks {
		approved := make([]uint64, len(chunk))
		declined := make([]uint64, len(chunk))
		for j, addr := range chunk {
			approved[j] = update[addr].ApprovedItems
			declined[j] = update[addr].DeclinedItems
		}
		res, err := p.Invoke(ctx, "updatePerformance", chunk, bigSlice(approved), bigSlice(declined))
		if err != nil {
			return results, fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err)
		}
		results = append(results, res)
	}

	p.log.Infof("updated performance of %d workers in %d transactions", len(changed), len(chunks))
	return results, nil
}

func (p *ProjectContract) Finalize(ctx context.Context) (*TxResult, error) {
	d, err := p.Describe(ctx)
	if err != nil {
		return nil, err
	}
	if d.State != StateActive {
		return nil, usererr.New(usererr.InvalidContractState, "contract can be finalized only in state %s, current state is %s", StateActive, d.State)
	}
	if p.Account() != d.Client {
		return nil, usererr.New(usererr.Unauthorized, "only client %s can finalize the contract, acting account is %s", d.Client, p.Account())
	}
	if !d.CanFinalize {
		return nil, usererr.New(usererr.InvalidContractState, "contract cannot be finalized, there is pending work")
	}
	return p.Invoke(ctx, "finalize")
}

// ForceFinalize repeats bounded forceFinalize transactions until the contract
// reports Finalized
func (p *ProjectContract) ForceFinalize(ctx context.Context) ([]*TxResult, error) {
	d, err := p.Describe(ctx)
	if err != nil {
		return nil, err
	}
	if d.State != StateActive && d.State != StateForceFinalizing {
		return nil, usererr.New(usererr.InvalidContractState, "contract can be force finalized only in states %s or %s, current state is %s", StateActive, StateForceFinalizing, d.State)
	}
	if !d.CanForceFinalize {
		if d.CanForceFinalizeAt.IsZero() {
			return nil, usererr.New(usererr.InvalidContractState, "contract cannot be force finalized yet")
		}
		return nil, usererr.New(usererr.InvalidContractState, "contract cannot be force finalized until %s", d.CanForceFinalizeAt.Format(time.RFC3339))
	}

	gasCap := new(big.Int).SetUint64(p.opts.ForceFinalizeGasCap)

	var results []*TxResult
	for i := 0; ; i++ {
		if p.opts.ForceFinalizeMaxIterations > 0 && i >= p.opts.ForceFinalizeMaxIterations {
			return results, usererr.New(usererr.TransactionFailed, "contract is not finalized after %d forceFinalize transactions", i)
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res, err := p.Invoke(ctx, "forceFinalize", gasCap)
		if err != nil {
			return results, err
		}
		results = append(results, res)

		state, err := p.State(ctx)
		if err != nil {
			return results, err
		}
		p.log.Debugf("forceFinalize iteration %d, state %s", i+1, state)
		if state == StateFinalized {
			return results, nil
		}
	}
}

func sortedAddresses[V any](m map[common.Address]V) []common.Address {
	keys := maps.Keys(m)
	slices.SortFunc(keys, func(a, b common.Address) bool {
		return bytes.Compare(a[:], b[:]) < 0
	})
	return keys
}

func compactResults(results []*TxResult) []*TxResult {
	out := make([]*TxResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
