// cmd/capeval/main.go
package main

import (
	cmd "github.com/capeval/capeval/internal/commands"
)

// main starts the capeval CLI application by delegating to the cobra root
// command defined in the commands package.
func main() {
	cmd.Execute()
}
