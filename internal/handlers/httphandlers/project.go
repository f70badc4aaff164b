package httphandlers

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"gitlab.com/TitanInd/escrow-bridge/internal/lib"
	"gitlab.com/TitanInd/escrow-bridge/internal/repositories/contracts"
)

func (h *HTTPHandler) GetContractStatus(ctx *gin.Context) {
	address, err := lib.ParseAddress(ctx.Param("address"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	project, err := h.contracts.Project(ctx, address)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	status, err := project.Status(ctx)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	ctx.JSON(200, mapStatus(address, status))
}

func (h *HTTPHandler) DeployContract(ctx *gin.Context) {
	var req DeployContractReq
	if !h.bindJSON(ctx, &req) {
		return
	}

	params, err := req.Payload.toParams()
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	h.startTask(ctx, req.Callback, func(ctx context.Context) (interface{}, error) {
		project, res, err := h.contracts.DeployProject(ctx, params)
		if err != nil {
			return nil, err
		}
		return DeployContractResult{
			ContractAddress: project.Address().Hex(),
			TxHash:          res.Tx.Hash().Hex(),
		}, nil
	})
}

func (p *DeployContractPayload) toParams() (contracts.DeployParams, error) {
	var (
		params contracts.DeployParams
		err    error
	)
	if params.TokenAddress, err = lib.ParseAddress(p.TokenContractAddress); err != nil {
		return params, err
	}
	if params.ClientAddress, err = lib.ParseAddress(p.ClientAddress); err != nil {
		return params, err
	}
	if params.ApprovalCommissionBeneficiaryAddress, err = lib.ParseAddress(p.ApprovalCommissionBenificiaryAddress); err != nil {
		return params, err
	}
	if params.DisapprovalCommissionBeneficiaryAddress, err = lib.ParseAddress(p.DisapprovalCommissionBeneficiaryAddress); err != nil {
		return params, err
	}
	if params.WorkItemPrice, err = lib.ParseAmount(p.WorkItemPrice); err != nil {
		return params, err
	}
	params.ApprovalCommissionFractionThousands = *p.ApprovalCommissionFraction
	params.DisapprovalCommissionFractionThousands = *p.DisapprovalCommissionFraction
	params.TotalWorkItems = p.TotalWorkItems
	params.AutoApprovalTimeoutSec = *p.AutoApprovalTimeoutSec
	return params, nil
}

func (h *HTTPHandler) UpdateCompletedWork(ctx *gin.Context) {
	var req UpdateCompletedWorkReq
	if !h.bindJSON(ctx, &req) {
		return
	}

	address, err := lib.ParseAddress(req.ContractAddress)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	totals, err := parseAddressMap(req.Payload)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	h.startTask(ctx, req.Callback, func(ctx context.Context) (interface{}, error) {
		project, err := h.contracts.Project(ctx, address)
		if err != nil {
			return nil, err
		}
		// partial results are reported along with the error
		results, err := project.UpdateTotals(ctx, totals)
		return mapTxResults(results), err
	})
}

func (h *HTTPHandler) ForceFinalize(ctx *gin.Context) {
	var req ForceFinalizeReq
	if !h.bindJSON(ctx, &req) {
		return
	}

	address, err := lib.ParseAddress(req.ContractAddress)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	h.startTask(ctx, req.Callback, func(ctx context.Context) (interface{}, error) {
		project, err := h.contracts.Project(ctx, address)
		if err != nil {
			return nil, err
		}
		// partial results are reported along with the error
		results, err := project.ForceFinalize(ctx)
		return mapTxResults(results), err
	})
}

func parseAddressMap[V any](in map[string]V) (map[common.Address]V, error) {
	out := make(map[common.Address]V, len(in))
	for key, value := range in {
		addr, err := lib.ParseAddress(key)
		if err != nil {
			return nil, err
		}
		out[addr] = value
	}
	return out, nil
}

func mapTxResults(results []*contracts.TxResult) []TxResultResponse {
	res := make([]TxResultResponse, len(results))
	for i, r := range results {
		res[i] = mapTxResult(r)
	}
	return res
}
