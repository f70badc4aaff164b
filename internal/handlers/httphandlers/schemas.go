package httphandlers

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/TitanInd/escrow-bridge/internal/lib"
	"gitlab.com/TitanInd/escrow-bridge/internal/notifier"
	"gitlab.com/TitanInd/escrow-bridge/internal/repositories/contracts"
)

type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ConfigResponse struct {
	Version string      `json:"version"`
	Config  interface{} `json:"config"`
}

type TaskResponse struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type WalletAddressResponse struct {
	Address string `json:"address"`
}

type BalancesResponse struct {
	Token          string `json:"token"`
	TokenFormatted string `json:"tokenFormatted"`
	Ether          string `json:"ether"`
	EtherFormatted string `json:"etherFormatted"`
}

type DeployContractReq struct {
	Callback string                `json:"callback" binding:"required,url"`
	Payload  DeployContractPayload `json:"payload"  binding:"required"`
}

// commission fractions are in thousands
type DeployContractPayload struct {
	TokenContractAddress                    string  `json:"tokenContractAddress"                    binding:"required,eth_addr"`
	ClientAddress                           string  `json:"clientAddress"                           binding:"required,eth_addr"`
	ApprovalCommissionBenificiaryAddress    string  `json:"approvalCommissionBenificiaryAddress"    binding:"required,eth_addr"`
	DisapprovalCommissionBeneficiaryAddress string  `json:"disapprovalCommissionBeneficiaryAddress" binding:"required,eth_addr"`
	ApprovalCommissionFraction              *uint64 `json:"approvalCommissionFraction"              binding:"required,lte=1000"`
	DisapprovalCommissionFraction           *uint64 `json:"disapprovalCommissionFraction"           binding:"required,lte=1000"`
	TotalWorkItems                          uint64  `json:"totalWorkItems"                          binding:"required,gt=0"`
	WorkItemPrice                           string  `json:"workItemPrice"                           binding:"required"`
	AutoApprovalTimeoutSec                  *uint64 `json:"autoApprovalTimeoutSec"                  binding:"required"`
}

type DeployContractResult struct {
	ContractAddress string `json:"contractAddress"`
	TxHash          string `json:"txHash"`
}

type UpdateCompletedWorkReq struct {
	Callback        string            `json:"callback"        binding:"required,url"`
	ContractAddress string            `json:"contractAddress" binding:"required,eth_addr"`
	Payload         map[string]uint64 `json:"payload"         binding:"required,min=1,dive,keys,eth_addr,endkeys"`
}

type ForceFinalizeReq struct {
	Callback        string `json:"callback"        binding:"required,url"`
	ContractAddress string `json:"contractAddress" binding:"required,eth_addr"`
}

type CreditAccountReq struct {
	Callback string               `json:"callback" binding:"required,url"`
	Payload  CreditAccountPayload `json:"payload"  binding:"required"`
}

type CreditAccountPayload struct {
	TokenContractAddress string `json:"tokenContractAddress" binding:"required,eth_addr"`
	RecepientAddress     string `json:"recepientAddress"     binding:"required,eth_addr"`
	EtherValue           string `json:"etherValue"           binding:"required"`
	TokenValue           string `json:"tokenValue"           binding:"required"`
}

type TxResultResponse struct {
	TxHash string `json:"txHash"`
	Fee    string `json:"fee"`
}

type CreditAccountResult struct {
	TokenTx TxResultResponse `json:"tokenTx"`
	EtherTx TxResultResponse `json:"etherTx"`
}

type ActorReq struct {
	ActorAddress    string `json:"actorAddress"    binding:"required,eth_addr"`
	ContractAddress string `json:"contractAddress" binding:"required,eth_addr"`
}

type ScoreWorkReq struct {
	ActorAddress    string               `json:"actorAddress"    binding:"required,eth_addr"`
	ContractAddress string               `json:"contractAddress" binding:"required,eth_addr"`
	Workers         map[string]WorkScore `json:"workers"         binding:"required,min=1,dive,keys,eth_addr,endkeys"`
}

type WorkScore struct {
	ApprovedItems uint64 `json:"approvedItems"`
	DeclinedItems uint64 `json:"declinedItems"`
}

type WorkerResponse struct {
	TotalItems    uint64 `json:"totalItems"`
	ApprovedItems uint64 `json:"approvedItems"`
	DeclinedItems uint64 `json:"declinedItems"`
}

type ContractStatusResponse struct {
	Address                     string                    `json:"address"`
	State                       string                    `json:"state"`
	Owner                       string                    `json:"owner"`
	Client                      string                    `json:"client"`
	TotalWorkItems              uint64                    `json:"totalWorkItems"`
	WorkItemPrice               string                    `json:"workItemPrice"`
	TokenBalance                string                    `json:"tokenBalance"`
	WorkItemsBalance            uint64                    `json:"workItemsBalance"`
	WorkItemsLeft               uint64                    `json:"workItemsLeft"`
	RequiredInitialTokenBalance string                    `json:"requiredInitialTokenBalance"`
	CanFinalize                 bool                      `json:"canFinalize"`
	CanForceFinalize            bool                      `json:"canForceFinalize"`
	CanForceFinalizeAt          int64                     `json:"canForceFinalizeAt"`
	Workers                     map[string]WorkerResponse `json:"workers"`
}

type TaskInfoResponse struct {
	TaskID      string              `json:"taskId"`
	Status      string              `json:"status"`
	Error       *notifier.ErrorBody `json:"error"`
	CreatedAt   int64               `json:"createdAt"`
	CompletedAt int64               `json:"completedAt,omitempty"`
}

// stateLabel keeps the upper case state names used by the api clients
func stateLabel(s contracts.State) string {
	if s == contracts.StateForceFinalizing {
		return "FORCE_FINALIZING"
	}
	return strings.ToUpper(s.String())
}

func mapStatus(address common.Address, status *contracts.ProjectStatus) *ContractStatusResponse {
	d := status.Description
	res := &ContractStatusResponse{
		Address:                     address.Hex(),
		State:                       stateLabel(d.State),
		Owner:                       d.Owner.Hex(),
		Client:                      d.Client.Hex(),
		TotalWorkItems:              d.TotalWorkItems,
		WorkItemPrice:               d.WorkItemPrice.String(),
		TokenBalance:                d.TokenBalance.String(),
		WorkItemsBalance:            d.WorkItemsBalance,
		WorkItemsLeft:               d.WorkItemsLeft,
		RequiredInitialTokenBalance: d.RequiredInitialTokenBalance.String(),
		CanFinalize:                 d.CanFinalize,
		CanForceFinalize:            d.CanForceFinalize,
		Workers:                     make(map[string]WorkerResponse, len(status.Performance)),
	}
	if !d.CanForceFinalizeAt.IsZero() {
		res.CanForceFinalizeAt = d.CanForceFinalizeAt.Unix()
	}
	for addr, p := range status.Performance {
		res.Workers[addr.Hex()] = WorkerResponse{
			TotalItems:    p.TotalItems,
			ApprovedItems: p.ApprovedItems,
			DeclinedItems: p.DeclinedItems,
		}
	}
	return res
}

func mapTxResult(res *contracts.TxResult) TxResultResponse {
	if res == nil {
		return TxResultResponse{}
	}
	return TxResultResponse{
		TxHash: res.Tx.Hash().Hex(),
		Fee:    lib.WeiToEther(res.Fee),
	}
}

func mapTask(task notifier.TaskInfo) TaskInfoResponse {
	res := TaskInfoResponse{
		TaskID:    task.TaskID,
		Status:    string(task.Status),
		Error:     task.Error,
		CreatedAt: task.CreatedAt.Unix(),
	}
	if !task.CompletedAt.IsZero() {
		res.CompletedAt = task.CompletedAt.Unix()
	}
	return res
}
