//go:build !bfcc_testing

package buildoptions

// IsTest is true only in binaries built with -tags bfcc_testing. Use it to
// insert assertions that should run under `go test` but get optimized out
// of a released binary: `if buildoptions.IsTest { ... }`.
const IsTest = false
