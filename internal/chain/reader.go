// Package chain implements the read-only on-chain collaborator: disclosed
// identity attributes previously written by the verification protocol to
// the ProofOfHuman contract, looked up by wallet address.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/pace-club/internal/errors"
	"github.com/pace-club/internal/types"
)

// proofOfHumanABI covers the four public mappings the service reads
const proofOfHumanABI = `[
	{"type":"function","name":"names","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"datesOfBirth","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"nationalities","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"genders","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"","type":"string"}]}
]`

// getterFor maps disclosure fields to contract getters
var getterFor = map[types.DisclosureField]string{
	types.FieldName:        "names",
	types.FieldDateOfBirth: "datesOfBirth",
	types.FieldNationality: "nationalities",
	types.FieldGender:      "genders",
}

// Caller is the subset of ethclient used by the reader
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Reader reads disclosed attributes from the verification contract
type Reader struct {
	client   Caller
	contract common.Address
	abi      abi.ABI
}

// NewReader dials the RPC endpoint and prepares the contract ABI
func NewReader(rpcURL, contractAddress string) (*Reader, error) {
	if !common.IsHexAddress(contractAddress) {
		return nil, errors.NewInvalidParameterError("contractAddress", "not a hex address")
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain RPC: %w", err)
	}

	return NewReaderWithCaller(client, contractAddress)
}

// NewReaderWithCaller wires an existing caller (used by tests)
func NewReaderWithCaller(client Caller, contractAddress string) (*Reader, error) {
	parsed, err := abi.JSON(strings.NewReader(proofOfHumanABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	return &Reader{
		client:   client,
		contract: common.HexToAddress(contractAddress),
		abi:      parsed,
	}, nil
}

// ReadDisclosure reads every disclosed attribute for a wallet. Empty
// strings are kept as empty: absence of a value is a display concern, not
// an error.
func (r *Reader) ReadDisclosure(ctx context.Context, walletAddress string) (map[string]string, error) {
	if !common.IsHexAddress(walletAddress) {
		return nil, errors.NewInvalidAddressError(walletAddress)
	}
	addr := common.HexToAddress(walletAddress)

	disclosed := make(map[string]string, len(types.DisclosureSet))
	for _, field := range types.DisclosureSet {
		value, err := r.readString(ctx, getterFor[field], addr)
		if err != nil {
			return nil, errors.NewProviderError("chain", fmt.Errorf("reading %s: %w", field, err))
		}
		disclosed[string(field)] = value
	}
	return disclosed, nil
}

func (r *Reader) readString(ctx context.Context, method string, addr common.Address) (string, error) {
	data, err := r.abi.Pack(method, addr)
	if err != nil {
		return "", err
	}

	result, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &r.contract, Data: data}, nil)
	if err != nil {
		return "", err
	}

	values, err := r.abi.Unpack(method, result)
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", nil
	}

	value, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected return type for %s", method)
	}
	return value, nil
}
