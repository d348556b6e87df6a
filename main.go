package main

import (
	"os"

	"github.com/evaka-go/apigw/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
