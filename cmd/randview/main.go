package main

import (
	"log"

	"randview/internal/ui"
)

func main() {
	log.SetPrefix("[randview] ")
	ui.CreateApplication()
}
