package main

import "github.com/JacobNewton007/tus-demo/cmd"

func main() {
	cmd.Execute()
}
