// SPDX-License-Identifier: MIT
package audio

import (
	"context"

	"micpipe/internal/config"
)

// Authorizer asks the platform for microphone access. Implementations may
// block until the user answers; they must honour ctx.
type Authorizer interface {
	RequestAccess(ctx context.Context) (granted bool, err error)
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(ctx context.Context) (bool, error)

func (f AuthorizerFunc) RequestAccess(ctx context.Context) (bool, error) {
	return f(ctx)
}

// StaticAuthorizer answers every request with the same decision.
type StaticAuthorizer bool

func (s StaticAuthorizer) RequestAccess(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return bool(s), nil
}

// AuthorizerFromConfig maps audio.microphone_access to an Authorizer.
func AuthorizerFromConfig(cfg config.AudioConfig) Authorizer {
	return StaticAuthorizer(cfg.MicrophoneAccess != config.AccessDenied)
}
