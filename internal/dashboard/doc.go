// Package dashboard serves the admin single-page UI.
//
// The compiled web bundle is embedded into the binary with the go:embed
// directive, eliminating any runtime dependency on external files. A
// filesystem mode exists for development so UI rebuilds are picked up
// without recompiling the server.
package dashboard
