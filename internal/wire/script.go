package wire

import (
	"encoding/hex"
	"fmt"

	"github.com/cory-btc/ancestry/internal/coreerr"
)

func parseScriptPubKeyFromJSON(spk interface{}) ([]byte, error) {
	m, ok := spk.(map[string]interface{})
	if !ok {
		return nil, &coreerr.InvalidTxDataError{Msg: "missing hex in scriptPubKey"}
	}
	hexStr, ok := m["hex"].(string)
	if !ok {
		return nil, &coreerr.InvalidTxDataError{Msg: "missing hex in scriptPubKey"}
	}
	return scriptFromHex(hexStr)
}

func scriptFromHex(hexStr string) ([]byte, error) {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, &coreerr.InvalidTxDataError{Msg: fmt.Sprintf("invalid scriptPubKey hex: %v", err)}
	}
	return b, nil
}
