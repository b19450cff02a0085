package main

import (
	"log"

	"artifactvault/cmd/av/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		log.Fatal(err)
	}
}
