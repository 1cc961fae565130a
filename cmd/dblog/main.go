/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"github.com/ssargent/dblog/cmd/dblog/cmd"
)

func main() {
	cmd.Execute()
}
