package util

import (
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/lucsky/cuid"
)

func GenerateUUID() string {
	newUUID, err := uuid.NewRandom()
	if err != nil {
		log.Fatalf("Failed to generate UUID: %v", err)
	}
	return newUUID.String()
}

// NewOrderNumber returns the human-readable order reference shared with
// customers and used as the gateway correlation key.
func NewOrderNumber() string {
	return "FRD-" + strings.ToUpper(cuid.Slug())
}
