package httphandlers

import (
	"math/big"

	"github.com/gin-gonic/gin"
	"gitlab.com/TitanInd/escrow-bridge/internal/lib"
	"golang.org/x/sync/errgroup"
)

func (h *HTTPHandler) GetWalletAddress(ctx *gin.Context) {
	conn, err := h.contracts.Connection(ctx)
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	ctx.JSON(200, WalletAddressResponse{Address: conn.Account().Hex()})
}

func (h *HTTPHandler) CheckBalances(ctx *gin.Context) {
	address, err := lib.ParseAddress(ctx.Param("address"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}
	tokenAddress, err := lib.ParseAddress(ctx.Query("tokenAddress"))
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	token, err := h.contracts.Token(ctx, tokenAddress)
	if err != nil {
		h.writeError(ctx, err)
		return
	}

	var (
		tokenBalance *big.Int
		etherBalance *big.Int
		decimals     uint8
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tokenBalance, err = token.BalanceOf(gctx, address)
		return err
	})
	g.Go(func() (err error) {
		etherBalance, err = h.contracts.EtherBalance(gctx, address)
		return err
	})
	g.Go(func() error {
		// decimals is optional in ERC-20
		d, err := token.Decimals(gctx)
		if err != nil {
			d = lib.EtherDecimals
		}
		decimals = d
		return nil
	})
	if err := g.Wait(); err != nil {
		h.writeError(ctx, err)
		return
	}

	ctx.JSON(200, BalancesResponse{
		Token:          tokenBalance.String(),
		TokenFormatted: lib.FormatUnits(tokenBalance, int32(decimals)),
		Ether:          etherBalance.String(),
		EtherFormatted: lib.WeiToEther(etherBalance),
	})
}
