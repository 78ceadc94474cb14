package wallet

import (
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
)

const DefaultNetwork = "testnet"

// Testnet4 uses the testnet3 address encoding, so both names resolve to the
// same parameters.
var networks = map[string]*chaincfg.Params{
	"mainnet":  &chaincfg.MainNetParams,
	"testnet":  &chaincfg.TestNet3Params,
	"testnet3": &chaincfg.TestNet3Params,
	"testnet4": &chaincfg.TestNet3Params,
	"signet":   &chaincfg.SigNetParams,
	"regtest":  &chaincfg.RegressionNetParams,
}

func NetworkParams(name string) (*chaincfg.Params, error) {
	params, ok := networks[strings.ToLower(name)]
	if !ok {
		return nil, errors.Errorf("unknown network %q", name)
	}
	return params, nil
}

// decodeAddress parses addr and checks it belongs to params.
func decodeAddress(addr string, params *chaincfg.Params) (btcutil.Address, error) {
	decoded, err := btcutil.DecodeAddress(addr, params)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidAddress, "%s: %v", addr, err)
	}

	if !decoded.IsForNet(params) {
		return nil, errors.Wrapf(ErrWrongNetwork, "%s is not a %s address", addr, params.Name)
	}

	return decoded, nil
}
