package httphandlers

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"gitlab.com/TitanInd/escrow-bridge/internal/lib"
	"gitlab.com/TitanInd/escrow-bridge/internal/repositories/contracts"
	"gitlab.com/TitanInd/escrow-bridge/internal/usererr"
)

// bindActor resolves the contract of a direct call. The actor must be the acting account.
func (h *HTTPHandler) bindActor(ctx *gin.Context, actorAddress, contractAddress string) (*contracts.ProjectContract, bool) {
	actor, err := lib.ParseAddress(actorAddress)
	if err != nil {
		h.writeError(ctx, err)
		return nil, false
	}
	address, err := lib.ParseAddress(contractAddress)
	if err != nil {
		h.writeError(ctx, err)
		return nil, false
	}

	project, err := h.contracts.Project(ctx, address)
	if err != nil {
		h.writeError(ctx, err)
		return nil, false
	}
	if project.Account() != actor {
		h.writeError(ctx, usererr.New(usererr.Unauthorized, "gateway acts as %s, not as %s", project.Account(), actor))
		return nil, false
	}
	return project, true
}

func (h *HTTPHandler) ActivateContract(ctx *gin.Context) {
	var req ActorReq
	if !h.bindJSON(ctx, &req) {
		return
	}
	project, ok := h.bindActor(ctx, req.ActorAddress, req.ContractAddress)
	if !ok {
		return
	}
	if _, err := project.Activate(ctx); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(200, StatusResponse{Status: "ok"})
}

func (h *HTTPHandler) ScoreWork(ctx *gin.Context) {
	var req ScoreWorkReq
	if !h.bindJSON(ctx, &req) {
		return
	}
	scores, err := parseAddressMap(req.Workers)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	project, ok := h.bindActor(ctx, req.ActorAddress, req.ContractAddress)
	if !ok {
		return
	}

	update := make(map[common.Address]contracts.PerformanceUpdate, len(scores))
	for addr, score := range scores {
		update[addr] = contracts.PerformanceUpdate{
			ApprovedItems: score.ApprovedItems,
			DeclinedItems: score.DeclinedItems,
		}
	}
	if _, err := project.UpdatePerformance(ctx, update); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(200, StatusResponse{Status: "ok"})
}

func (h *HTTPHandler) FinalizeContract(ctx *gin.Context) {
	var req ActorReq
	if !h.bindJSON(ctx, &req) {
		return
	}
	project, ok := h.bindActor(ctx, req.ActorAddress, req.ContractAddress)
	if !ok {
		return
	}
	if _, err := project.Finalize(ctx); err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(200, StatusResponse{Status: "ok"})
}

// TestCallback accepts notifier deliveries during integration runs
func (h *HTTPHandler) TestCallback(ctx *gin.Context) {
	var body map[string]interface{}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		h.writeError(ctx, usererr.Wrap(err, usererr.InvalidData, "invalid callback body"))
		return
	}
	h.log.Infof("test callback received: %v", body)
	ctx.JSON(200, gin.H{"ok": true})
}
