package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes a plaintext password at the configured cost. bcrypt
// rejects input longer than 72 bytes, and that error is returned as-is.
func HashPassword(password string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether password matches hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// dummyHash is compared against on a login miss so that the code path for
// "user not found" and "wrong password" take the same amount of time. It
// is hashed at the default BCRYPT_COST (12) used for real accounts.
var dummyHash, _ = HashPassword("equalize-timing-dummy-password", 12)

// VerifyAgainstDummy burns roughly the same CPU time as VerifyPassword
// would against a real hash, without leaking whether the account exists.
func VerifyAgainstDummy(password string) {
	bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
}
