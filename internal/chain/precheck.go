package chain

import "github.com/R3E-Network/hiero_client/internal/wire"

// isTransientPrecheck reports codes that mean "try the same bytes elsewhere".
func isTransientPrecheck(code wire.ResponseCode) bool {
	switch code {
	case wire.Busy, wire.PlatformNotActive, wire.PlatformTransactionNotCreated:
		return true
	}
	return false
}

// isFeeCode reports codes that call for a re-quoted request.
func isFeeCode(code wire.ResponseCode) bool {
	return code == wire.InsufficientTxFee
}

// stillProcessing reports receipt codes that mean consensus has not been
// observed yet.
func stillProcessing(code wire.ResponseCode) bool {
	switch code {
	case wire.Unknown, wire.ReceiptNotFound, wire.Busy, wire.OK:
		return true
	}
	return false
}
