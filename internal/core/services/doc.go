// Package services implements the driving port interfaces.
// The retrieval pipeline, conversation management and settings live here
// and reach storage, embedding and generation only through driven ports.
//
// Services are pure Go with no CGO or external dependencies.
package services
