package main

import "github.com/naka-gawa/github-package-stats/cmd"

func main() {
	cmd.Execute()
}
