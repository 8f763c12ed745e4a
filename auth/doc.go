// Package auth provides HS256 bearer token signing and validation for the
// HTTP API.
//
// A Manager is built from a Config and exposes Generate for issuing tokens
// and Validate for checking them. ValidatorFunc adapts the manager to the
// middleware.AuthConfig contract so validated claims end up in the request
// context:
//
//	mgr, err := auth.NewManager(auth.Config{Secret: secret})
//	if err != nil {
//		return err
//	}
//	srv.ApplyMiddleware(middleware.Auth(&middleware.AuthConfig{
//		TokenValidator: mgr.ValidatorFunc(),
//		SkipPaths:      []string{"/health", "/version"},
//	}))
package auth
