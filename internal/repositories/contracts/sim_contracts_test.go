package contracts

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type projectSim struct {
	abi *abi.ABI

	owner            common.Address
	client           common.Address
	state            State
	totalWorkItems   uint64
	price            *big.Int
	tokenBalance     *big.Int
	canForceFinalize bool
	forceFinalizeAt  uint64
	resolvePerCall   int

	workers []common.Address
	perf    map[common.Address]*WorkerPerformance

	calls   map[string]int
	batches map[string][]int
}

func newProjectSim(contractABI *abi.ABI, owner, client common.Address, totalWorkItems uint64, price *big.Int) *projectSim {
	return &projectSim{
		abi:            contractABI,
		owner:          owner,
		client:         client,
		totalWorkItems: totalWorkItems,
		price:          price,
		tokenBalance:   new(big.Int),
		resolvePerCall: 1,
		perf:           make(map[common.Address]*WorkerPerformance),
		calls:          make(map[string]int),
		batches:        make(map[string][]int),
	}
}

func (s *projectSim) required() *big.Int {
	return new(big.Int).Mul(s.price, new(big.Int).SetUint64(s.totalWorkItems))
}

func (s *projectSim) allScored() bool {
	for _, p := range s.perf {
		if !p.Scored() {
			return false
		}
	}
	return true
}

func (s *projectSim) completed() uint64 {
	var sum uint64
	for _, p := range s.perf {
		sum += p.TotalItems
	}
	return sum
}

func (s *projectSim) call(_ common.Address, input []byte) ([]byte, error) {
	method, _, err := unpackInput(s.abi, input)
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "state":
		return method.Outputs.Pack(uint8(s.state))
	case "owner":
		return method.Outputs.Pack(s.owner)
	case "client":
		return method.Outputs.Pack(s.client)
	case "describe":
		return method.Outputs.Pack(
			uint8(s.state),
			new(big.Int).SetUint64(s.totalWorkItems),
			s.price,
			s.tokenBalance,
			new(big.Int).SetUint64(s.completed()),
			new(big.Int).SetUint64(s.totalWorkItems-s.completed()),
			s.required(),
			s.state == StateActive && s.allScored(),
			s.canForceFinalize,
			new(big.Int).SetUint64(s.forceFinalizeAt),
		)
	case "getPerformance":
		totals := make([]*big.Int, len(s.workers))
		approved := make([]*big.Int, len(s.workers))
		declined := make([]*big.Int, len(s.workers))
		for i, w := range s.workers {
			totals[i] = new(big.Int).SetUint64(s.perf[w].TotalItems)
			approved[i] = new(big.Int).SetUint64(s.perf[w].ApprovedItems)
			declined[i] = new(big.Int).SetUint64(s.perf[w].DeclinedItems)
		}
		return method.Outputs.Pack(s.workers, totals, approved, declined)
	}
	return nil, revert("%s is not a view", method.Name)
}

func (s *projectSim) exec(from common.Address, input []byte, _ *big.Int, apply bool) ([]*types.Log, error) {
	method, args, err := unpackInput(s.abi, input)
	if err != nil {
		return nil, err
	}

	switch method.Name {
	case "activate":
		if from != s.client {
			return nil, revert("only client")
		}
		if s.state != StateNew {
			return nil, revert("wrong state")
		}
		if s.tokenBalance.Cmp(s.required()) < 0 {
			return nil, revert("insufficient token balance")
		}
		if apply {
			s.state = StateActive
		}
	case "updateTotals":
		if from != s.owner || s.state != StateActive {
			return nil, revert("not allowed")
		}
		workers := args[0].([]common.Address)
		totals := args[1].([]*big.Int)
		if apply {
			for i, w := range workers {
				if _, ok := s.perf[w]; !ok {
					s.workers = append(s.workers, w)
					s.perf[w] = &WorkerPerformance{}
				}
				s.perf[w].TotalItems = totals[i].Uint64()
			}
			s.batches[method.Name] = append(s.batches[method.Name], len(workers))
		}
	case "updatePerformance":
		if from != s.client || s.state != StateActive {
			return nil, revert("not allowed")
		}
		workers := args[0].([]common.Address)
		approved := args[1].([]*big.Int)
		declined := args[2].([]*big.Int)
		if apply {
			for i, w := range workers {
				s.perf[w].ApprovedItems = approved[i].Uint64()
				s.perf[w].DeclinedItems = declined[i].Uint64()
			}
			s.batches[method.Name] = append(s.batches[method.Name], len(workers))
		}
	case "finalize":
		if from != s.client || s.state != StateActive || !s.allScored() {
			return nil, revert("cannot finalize")
		}
		if apply {
			s.state = StateFinalized
		}
	case "forceFinalize":
		if !s.canForceFinalize || (s.state != StateActive && s.state != StateForceFinalizing) {
			return nil, revert("cannot force finalize")
		}
		if apply {
			resolved := 0
			for _, w := range s.workers {
				p := s.perf[w]
				if p.Scored() {
					continue
				}
				if resolved == s.resolvePerCall {
					break
				}
				p.ApprovedItems = p.TotalItems - p.DeclinedItems
				resolved++
			}
			if s.allScored() {
				s.state = StateFinalized
			} else {
				s.state = StateForceFinalizing
			}
		}
	default:
		return nil, revert("unknown method %s", method.Name)
	}

	if apply {
		s.calls[method.Name]++
	}
	return nil, nil
}

type tokenSim struct {
	abi      *abi.ABI
	balances map[common.Address]*big.Int
	supply   *big.Int
	silent   bool
}

func newTokenSim(contractABI *abi.ABI, holder common.Address, supply *big.Int) *tokenSim {
	return &tokenSim{
		abi:      contractABI,
		balances: map[common.Address]*big.Int{holder: new(big.Int).Set(supply)},
		supply:   supply,
	}
}

func (s *tokenSim) balanceOf(addr common.Address) *big.Int {
	if b, ok := s.balances[addr]; ok {
		return b
	}
	return new(big.Int)
}

func (s *tokenSim) call(_ common.Address, input []byte) ([]byte, error) {
	method, args, err := unpackInput(s.abi, input)
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "balanceOf":
		return method.Outputs.Pack(s.balanceOf(args[0].(common.Address)))
	case "totalSupply":
		return method.Outputs.Pack(s.supply)
	case "decimals":
		return method.Outputs.Pack(uint8(18))
	case "name":
		return method.Outputs.Pack("GraphGrail Token")
	case "symbol":
		return method.Outputs.Pack("GRAIL")
	}
	return nil, revert("%s is not a view", method.Name)
}

func (s *tokenSim) exec(from common.Address, input []byte, _ *big.Int, apply bool) ([]*types.Log, error) {
	method, args, err := unpackInput(s.abi, input)
	if err != nil {
		return nil, err
	}
	if method.Name != "transfer" {
		return nil, revert("unknown method %s", method.Name)
	}

	to := args[0].(common.Address)
	value := args[1].(*big.Int)
	if s.silent {
		return nil, nil
	}
	if s.balanceOf(from).Cmp(value) < 0 {
		return nil, revert("insufficient balance")
	}
	if !apply {
		return nil, nil
	}

	s.balances[from] = new(big.Int).Sub(s.balanceOf(from), value)
	s.balances[to] = new(big.Int).Add(s.balanceOf(to), value)

	event := s.abi.Events["Transfer"]
	data, err := event.Inputs.NonIndexed().Pack(value)
	if err != nil {
		return nil, err
	}
	return []*types.Log{{
		Topics: []common.Hash{event.ID, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:   data,
	}}, nil
}
