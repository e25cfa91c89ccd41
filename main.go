// Main entry point for the application
package main

import (
	"log"

	"randview/internal/ui"
)

func main() {
	// Set the logger prefix
	log.SetPrefix("Random Image Viewer ")

	ui.CreateApplication()
}
