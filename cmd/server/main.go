// Package main is the entry point for the LocApp calendar server.
package main

import "github.com/locapp/backend/cmd/server/cmd"

// version is set at build time via -ldflags "-X main.version=x.y.z".
// Defaults to "dev" when not provided.
var version = "dev"

func main() {
	cmd.Execute(version)
}
