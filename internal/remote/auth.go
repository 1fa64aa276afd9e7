package remote

// Authenticator provides credentials for OCI registry operations.
type Authenticator interface {
	// Authenticate returns credentials for the given registry. Empty
	// credentials fall back to the docker keychain.
	Authenticate(registry string) (username, password string, err error)
}

// StaticAuthenticator returns the same credentials for every registry.
type StaticAuthenticator struct {
	Username string
	Password string
}

func (a StaticAuthenticator) Authenticate(string) (string, string, error) {
	return a.Username, a.Password, nil
}
