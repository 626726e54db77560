// Command ledger-projector runs the Account Projector as its own
// long-lived process, separate from the HTTP edge, per spec.md §9's
// instruction that the source's module-level ELC singleton become an
// injected, independently-lifecycled resource.
package main

import (
	"context"
	"log"

	"ledger/internal/pkg/components"
	"ledger/internal/pkg/logging"
)

func main() {
	container, err := components.NewProjector()
	if err != nil {
		log.Fatalf("failed to initialize projector: %v", err)
	}

	logging.Info("ledger projector initialized", map[string]interface{}{
		"consumer": container.Projector.ConsumerName(),
		"stream":   container.Config.Stream.Name,
	})

	if err := container.Start(context.Background()); err != nil {
		log.Fatalf("projector exited: %v", err)
	}
}
