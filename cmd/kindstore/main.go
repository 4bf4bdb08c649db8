// Command kindstore stores and queries entities of the kinds declared in a
// YAML schema.
package main

import "github.com/mesh-intelligence/kindstore/internal/cli"

func main() {
	cli.Execute()
}
