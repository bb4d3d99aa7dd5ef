// Package jftest holds build metadata for the jftest functional test runner.
package jftest

// Version is the jftest release version.
const Version = "0.3.0"
