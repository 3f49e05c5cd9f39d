package main

import "github.com/nichofy/ms-go-entitlements/cmd"

func main() {
	cmd.Execute()
}
