package httphandlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"gitlab.com/TitanInd/escrow-bridge/internal/lib"
)

// CreditAccount sends tokens and then ether from the acting account
func (h *HTTPHandler) CreditAccount(ctx *gin.Context) {
	var req CreditAccountReq
	if !h.bindJSON(ctx, &req) {
		return
	}

	tokenAddress, err := lib.ParseAddress(req.Payload.TokenContractAddress)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	recipient, err := lib.ParseAddress(req.Payload.RecepientAddress)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	tokenValue, err := lib.ParseAmount(req.Payload.TokenValue)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	etherValue, err := lib.ParseAmount(req.Payload.EtherValue)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	h.startTask(ctx, req.Callback, func(ctx context.Context) (interface{}, error) {
		token, err := h.contracts.Token(ctx, tokenAddress)
		if err != nil {
			return nil, err
		}
		tokenRes, err := token.Transfer(ctx, recipient, tokenValue)
		if err != nil {
			return nil, err
		}
		etherRes, err := h.contracts.SendEther(ctx, recipient, etherValue)
		if err != nil {
			return CreditAccountResult{TokenTx: mapTxResult(tokenRes)}, err
		}
		return CreditAccountResult{
			TokenTx: mapTxResult(tokenRes),
			EtherTx: mapTxResult(etherRes),
		}, nil
	})
}
