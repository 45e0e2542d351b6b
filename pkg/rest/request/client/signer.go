package client

import "net/http"

// AccessReader exposes the currently stored access credential.
type AccessReader interface {
	Access() (string, bool)
}

// Signer attaches the stored access credential to outbound requests.
type Signer struct {
	creds AccessReader
}

func NewSigner(creds AccessReader) *Signer {
	return &Signer{creds: creds}
}

// Sign returns a copy of req carrying "Authorization: Bearer <access>" when an
// access credential is stored, together with the token that was used.
// Without a stored credential the copy goes out unauthenticated.
func (s *Signer) Sign(req *http.Request) (*http.Request, string) {
	signed := req.Clone(req.Context())

	token, ok := s.creds.Access()
	if !ok {
		return signed, ""
	}

	signed.Header.Set("Authorization", "Bearer "+token)
	return signed, token
}
