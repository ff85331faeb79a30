package crypto

import (
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/vhkhang/authcore/params"
)

// totpOpts pins the RFC 6238 parameters: six digits, 30 second steps and
// exactly one step of clock-drift tolerance either side.
var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// GenerateTOTPSecret provisions a new 256-bit TOTP secret and returns the
// base32 secret and the otpauth:// URL for authenticator enrollment.
func GenerateTOTPSecret(issuer, accountName string) (secret string, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: accountName,
		SecretSize:  params.TOTPSecretSize,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return "", "", err
	}
	return key.Secret(), key.URL(), nil
}

// GenerateTOTPCode computes the code for the time step containing t.
func GenerateTOTPCode(secret string, t time.Time) (string, error) {
	return totp.GenerateCodeCustom(secret, t, totpOpts)
}

// ValidateTOTPCode checks code against secret at time t, accepting the
// current step and the one before and after.
func ValidateTOTPCode(code, secret string, t time.Time) bool {
	ok, err := totp.ValidateCustom(code, secret, t, totpOpts)
	return err == nil && ok
}
