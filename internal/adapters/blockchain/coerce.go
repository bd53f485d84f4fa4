package blockchain

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// coerceArgs converts plan values (YAML scalars, hex strings, addresses) into
// the Go types the ABI encoder expects for each input
func coerceArgs(inputs abi.Arguments, args []any) ([]any, error) {
	if len(inputs) != len(args) {
		return nil, fmt.Errorf("expected %d argument(s), got %d", len(inputs), len(args))
	}
	out := make([]any, len(args))
	for i, input := range inputs {
		v, err := coerce(input.Type, args[i])
		if err != nil {
			name := input.Name
			if name == "" {
				name = fmt.Sprintf("#%d", i)
			}
			return nil, fmt.Errorf("argument %s (%s): %w", name, input.Type.String(), err)
		}
		out[i] = v
	}
	return out, nil
}

func coerce(t abi.Type, v any) (any, error) {
	switch t.T {
	case abi.AddressTy:
		return toAddress(v)
	case abi.IntTy, abi.UintTy:
		n, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		return fitInteger(t, n)
	case abi.BoolTy:
		switch val := v.(type) {
		case bool:
			return val, nil
		case string:
			return strconv.ParseBool(val)
		}
		return nil, fmt.Errorf("cannot use %T as bool", v)
	case abi.StringTy:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case abi.BytesTy:
		return toBytes(v)
	case abi.FixedBytesTy:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%d bytes do not fit in bytes%d", len(b), t.Size)
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	case abi.SliceTy, abi.ArrayTy:
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("cannot use %T as %s", v, t.String())
		}
		if t.T == abi.ArrayTy && len(items) != t.Size {
			return nil, fmt.Errorf("expected %d element(s), got %d", t.Size, len(items))
		}
		var out reflect.Value
		if t.T == abi.SliceTy {
			out = reflect.MakeSlice(t.GetType(), len(items), len(items))
		} else {
			out = reflect.New(t.GetType()).Elem()
		}
		for i, item := range items {
			elem, err := coerce(*t.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out.Index(i).Set(reflect.ValueOf(elem))
		}
		return out.Interface(), nil
	default:
		return v, nil
	}
}

func toAddress(v any) (common.Address, error) {
	switch val := v.(type) {
	case common.Address:
		return val, nil
	case string:
		if !common.IsHexAddress(val) {
			return common.Address{}, fmt.Errorf("%q is not an address", val)
		}
		return common.HexToAddress(val), nil
	}
	return common.Address{}, fmt.Errorf("cannot use %T as address", v)
}

func toBigInt(v any) (*big.Int, error) {
	switch val := v.(type) {
	case *big.Int:
		return new(big.Int).Set(val), nil
	case int:
		return big.NewInt(int64(val)), nil
	case int64:
		return big.NewInt(val), nil
	case uint64:
		return new(big.Int).SetUint64(val), nil
	case float64:
		if val != math.Trunc(val) {
			return nil, fmt.Errorf("%v is not an integer", val)
		}
		n, _ := big.NewFloat(val).Int(nil)
		return n, nil
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(val), "_", "")
		n, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("%q is not an integer", val)
		}
		return n, nil
	}
	return nil, fmt.Errorf("cannot use %T as integer", v)
}

// fitInteger range checks n and converts it to the exact Go type of t
func fitInteger(t abi.Type, n *big.Int) (any, error) {
	if t.T == abi.UintTy {
		if n.Sign() < 0 {
			return nil, fmt.Errorf("%s is negative", n)
		}
		if n.BitLen() > t.Size {
			return nil, fmt.Errorf("%s overflows uint%d", n, t.Size)
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		if n.Cmp(limit) >= 0 || n.Cmp(new(big.Int).Neg(limit)) < 0 {
			return nil, fmt.Errorf("%s overflows int%d", n, t.Size)
		}
	}

	goType := t.GetType()
	if goType == reflect.TypeOf(&big.Int{}) {
		return n, nil
	}
	if t.T == abi.UintTy {
		return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
	}
	return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
}

func toBytes(v any) ([]byte, error) {
	switch val := v.(type) {
	case []byte:
		return val, nil
	case common.Hash:
		return val.Bytes(), nil
	case string:
		b, err := hexutil.Decode(val)
		if err != nil {
			return nil, fmt.Errorf("%q is not hex: %w", val, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("cannot use %T as bytes", v)
}
