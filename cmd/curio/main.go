package main

import (
	"os"

	"horse.fit/curio/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
