package session

import (
	goerrors "errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/text/unicode/norm"

	"github.com/status-im/status-serial-signer-go/internal/wallet"
)

var (
	validate = validator.New()
)

func init() {
	err := validate.RegisterValidation("network", isNetwork)
	if err != nil {
		panic(err)
	}
}

func validateRequest(v interface{}) error {
	err := validate.Struct(v)
	if err != nil {
		var errs validator.ValidationErrors
		if goerrors.As(err, &errs) {
			joined := make([]error, len(errs))
			for i, e := range errs {
				joined[i] = e
			}
			return goerrors.Join(joined...)
		}
		return err
	}
	return nil
}

func isNetwork(fl validator.FieldLevel) bool {
	_, err := wallet.NetworkParams(fl.Field().String())
	return err == nil
}

// isRecoveryPhrase checks the BIP39 checksum of the words the device
// returned.
func isRecoveryPhrase(words []string) bool {
	if len(words) == 0 {
		return false
	}
	phrase := norm.NFKD.String(strings.Join(words, " "))
	return bip39.IsMnemonicValid(phrase)
}
