package lib

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gitlab.com/TitanInd/escrow-bridge/internal/usererr"
)

// ParseAddress validates a hex address, checksum is verified for mixed-case input
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, usererr.New(usererr.InvalidEthereumAddress, "invalid ethereum address %q", s)
	}
	addr := common.HexToAddress(s)
	hex := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if hex != strings.ToLower(hex) && hex != strings.ToUpper(hex) && addr.Hex()[2:] != hex {
		return common.Address{}, usererr.New(usererr.InvalidEthereumAddress, "invalid checksum of ethereum address %q", s)
	}
	return addr, nil
}
