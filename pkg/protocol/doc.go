// Package protocol resolves the version-specific parts of the play
// protocol that the highlight engine depends on.
//
// Everything that differs between protocol versions (packet IDs, the
// metadata serializer of the flags entry, text component encoding, entity
// type IDs) lives in an embedded YAML manifest per protocol number. Resolve
// turns a manifest into a Capability: a small fixed interface that the rest
// of the engine uses without ever looking at a version number.
//
// # Resolution
//
// Resolve is attempted at most once per protocol version per process. The
// outcome, success or failure, is cached. A manifest that is missing or
// incomplete yields ErrUnsupportedVersion; a partially usable capability is
// never returned.
//
// # Block extension
//
// Block highlights need a marker entity type. Manifests that declare one
// expose a BlockCapability through Capability.Blocks; whether the host may
// use it is decided by the caller.
package protocol
