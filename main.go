/*
Copyright © 2025 Codervisor
*/
package main

import "github.com/codervisor/devlog/cmd"

func main() {
	cmd.Execute()
}
