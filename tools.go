//go:build tools

package tools

// Mocks are generated from .mockery.yaml with the pinned version:
//
//	go run github.com/vektra/mockery/v2
import (
	_ "github.com/vektra/mockery/v2"
)
