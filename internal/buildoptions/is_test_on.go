//go:build bfcc_testing

package buildoptions

// IsTest is true only in binaries built with -tags bfcc_testing.
const IsTest = true
