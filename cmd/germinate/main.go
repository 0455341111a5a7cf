package main

import "github.com/dbsmedya/germinate/cmd/germinate/cmd"

func main() {
	cmd.Execute()
}
