package main

import "github.com/chrisdamba/coastersim/cmd"

func main() {
	cmd.Execute()
}
