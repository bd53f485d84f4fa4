package models

import (
	"fmt"
	"math/big"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// FormatValue renders a decoded ABI value the way postconditions compare it
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case common.Address:
		return val.Hex()
	case common.Hash:
		return val.Hex()
	case [32]byte:
		return common.Hash(val).Hex()
	case []byte:
		return hexutil.Encode(val)
	case *big.Int:
		if val == nil {
			return "0"
		}
		return val.String()
	case string:
		return val
	case bool:
		return fmt.Sprintf("%t", val)
	case fmt.Stringer:
		return val.String()
	}

	// Other fixed-size byte arrays (bytes1..bytes31)
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Array && rv.Type().Elem().Kind() == reflect.Uint8 {
		buf := make([]byte, rv.Len())
		reflect.Copy(reflect.ValueOf(buf), rv)
		return hexutil.Encode(buf)
	}
	return fmt.Sprintf("%v", v)
}
