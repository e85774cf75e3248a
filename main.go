package main

import "github.com/solutionsscriptware-cmd/billflow/cmd"

func main() {
	cmd.Execute()
}
