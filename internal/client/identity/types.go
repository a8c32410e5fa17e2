package identity

import "errors"

var (
	ErrUnauthenticated     = errors.New("session credential missing")
	ErrIdentityUnreachable = errors.New("identity service unreachable")
	ErrInvalidIdentity     = errors.New("identity service returned no subject")
)

type UserDetailsResponse struct {
	UserDetails *UserDetails `json:"user_details"`
}

type UserDetails struct {
	Sub string `json:"sub"`
}
