package outbound

type PasswordService interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hash string) (bool, error)
	// DummyVerify burns one hash comparison against a fixed hash so the
	// unknown-email login path costs the same as a real verification.
	DummyVerify(password string)
}
