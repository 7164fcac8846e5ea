package model

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

// GenerateUUIDWithSuffix generates a UUID prefixed with a module name,
// e.g. "tkt_9b1deb4d-...". Used for all entity identifiers.
func GenerateUUIDWithSuffix(module string) string {
	id := uuid.New()
	return fmt.Sprintf("%s_%s", module, id.String())
}

// confirmationAlphabet is the character set for kiosk confirmation
// codes. Uppercase plus digits keeps codes easy to read back and type
// on a kiosk keypad.
const confirmationAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ConfirmationCodeLength is the fixed length of confirmation codes.
const ConfirmationCodeLength = 6

// GenerateConfirmationCode returns a random 6-character alphanumeric
// code. Uniqueness against active codes is enforced by the caller.
func GenerateConfirmationCode() (string, error) {
	code := make([]byte, ConfirmationCodeLength)
	max := big.NewInt(int64(len(confirmationAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = confirmationAlphabet[n.Int64()]
	}
	return string(code), nil
}
