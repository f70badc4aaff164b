package contracts

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type State uint8

const (
	StateNew State = iota
	StateActive
	StateForceFinalizing
	StateFinalized
)

var stateNames = map[State]string{
	StateNew:             "New",
	StateActive:          "Active",
	StateForceFinalizing: "ForceFinalizing",
	StateFinalized:       "Finalized",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", uint8(s))
}

func ParseState(name string) (State, error) {
	for state, stateName := range stateNames {
		if strings.EqualFold(stateName, name) {
			return state, nil
		}
	}
	return 0, fmt.Errorf("unknown project state %q", name)
}

type ProjectDescription struct {
	State                       State
	TotalWorkItems              uint64
	WorkItemPrice               *big.Int
	TokenBalance                *big.Int
	WorkItemsBalance            uint64
	WorkItemsLeft               uint64
	RequiredInitialTokenBalance *big.Int
	CanFinalize                 bool
	CanForceFinalize            bool
	CanForceFinalizeAt          time.Time
	Owner                       common.Address
	Client                      common.Address
}

type WorkerPerformance struct {
	TotalItems    uint64
	ApprovedItems uint64
	DeclinedItems uint64
}

// Scored reports whether every item of the worker is either approved or declined
func (p WorkerPerformance) Scored() bool {
	return p.ApprovedItems+p.DeclinedItems == p.TotalItems
}

type Performance map[common.Address]WorkerPerformance

type PerformanceUpdate struct {
	ApprovedItems uint64
	DeclinedItems uint64
}

type ProjectStatus struct {
	Description *ProjectDescription
	Performance Performance
}

const MaxCommissionFractionThousands = 1000

type DeployParams struct {
	TokenAddress                            common.Address
	ClientAddress                           common.Address
	ApprovalCommissionBeneficiaryAddress    common.Address
	DisapprovalCommissionBeneficiaryAddress common.Address
	ApprovalCommissionFractionThousands     uint64
	DisapprovalCommissionFractionThousands  uint64
	TotalWorkItems                          uint64
	WorkItemPrice                           *big.Int
	AutoApprovalTimeoutSec                  uint64
}

// ProjectOptions tune how workflows are split into transactions
type ProjectOptions struct {
	TotalsChunkSize            int
	TotalsConcurrency          int
	PerformanceChunkSize       int
	ForceFinalizeGasCap        uint64
	ForceFinalizeMaxIterations int
}
