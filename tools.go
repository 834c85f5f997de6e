//go:build tools

package charextractor

// Tools run through go generate, tracked here so go.mod pins them.
import (
	_ "go.uber.org/mock/mockgen"
)
