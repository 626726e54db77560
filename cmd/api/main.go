// Command ledger-api runs the HTTP write-side edge: gin handlers
// translating the four documented endpoints into Account Service calls.
package main

import (
	"log"

	"ledger/internal/pkg/components"
	"ledger/internal/pkg/logging"
)

func main() {
	container, err := components.New()
	if err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}

	logging.Info("ledger API initialized", map[string]interface{}{
		"port":   container.Config.Server.Port,
		"stream": container.Config.Stream.Name,
	})

	if err := container.Start(); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
