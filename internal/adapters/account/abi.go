package account

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const factoryABIJSON = `[
  {"type":"function","name":"getAddress","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"},{"name":"salt","type":"uint256"}],
   "outputs":[{"name":"","type":"address"}]},
  {"type":"function","name":"createAccount","stateMutability":"nonpayable",
   "inputs":[{"name":"owner","type":"address"},{"name":"salt","type":"uint256"}],
   "outputs":[{"name":"ret","type":"address"}]}
]`

const accountABIJSON = `[
  {"type":"function","name":"execute","stateMutability":"nonpayable",
   "inputs":[{"name":"dest","type":"address"},{"name":"value","type":"uint256"},{"name":"func","type":"bytes"}],
   "outputs":[]},
  {"type":"function","name":"executeBatch","stateMutability":"nonpayable",
   "inputs":[{"name":"calls","type":"tuple[]","components":[
     {"name":"target","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}]}],
   "outputs":[]}
]`

const entryPointABIJSON = `[
  {"type":"function","name":"getNonce","stateMutability":"view",
   "inputs":[{"name":"sender","type":"address"},{"name":"key","type":"uint192"}],
   "outputs":[{"name":"nonce","type":"uint256"}]},
  {"type":"function","name":"getUserOpHash","stateMutability":"view",
   "inputs":[{"name":"userOp","type":"tuple","components":[
     {"name":"sender","type":"address"},
     {"name":"nonce","type":"uint256"},
     {"name":"initCode","type":"bytes"},
     {"name":"callData","type":"bytes"},
     {"name":"accountGasLimits","type":"bytes32"},
     {"name":"preVerificationGas","type":"uint256"},
     {"name":"gasFees","type":"bytes32"},
     {"name":"paymasterAndData","type":"bytes"},
     {"name":"signature","type":"bytes"}]}],
   "outputs":[{"name":"","type":"bytes32"}]}
]`

var (
	factoryABI    = mustParseABI("factory", factoryABIJSON)
	accountABI    = mustParseABI("account", accountABIJSON)
	entryPointABI = mustParseABI("entry point", entryPointABIJSON)
)

// accountSalt is fixed: one smart account per owner.
var accountSalt = big.NewInt(0)

// nonceKey selects the single sequential nonce space.
var nonceKey = big.NewInt(0)

// dummySignature has a low s value so ECDSA recovery does not revert during gas estimation.
var dummySignature = common.FromHex("0xfffffffffffffffffffffffffffffff0000000000000000000000000000000007aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa1c")

type batchCall struct {
	Target common.Address
	Value  *big.Int
	Data   []byte
}

type packedUserOperation struct {
	Sender             common.Address
	Nonce              *big.Int
	InitCode           []byte
	CallData           []byte
	AccountGasLimits   [32]byte
	PreVerificationGas *big.Int
	GasFees            [32]byte
	PaymasterAndData   []byte
	Signature          []byte
}

func mustParseABI(name, raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parse %s abi: %v", name, err))
	}
	return parsed
}
