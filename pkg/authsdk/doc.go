// Package authsdk is the client SDK for the veil authentication service.
// It carries the wire types shared between server handlers and clients,
// typed API errors, and a Client that drives the full zero-knowledge login
// handshake so callers never touch the protocol math directly.
package authsdk
