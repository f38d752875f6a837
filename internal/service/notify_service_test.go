package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"sdlvbooker/internal/entities"
)

func TestBuildMessageSuccess(t *testing.T) {
	msg := buildMessage(entities.NotificationEvent{
		TargetDate: "2025-03-17",
		TargetTime: "19:00",
		BookedTime: "19:00",
		Playground: "Foot 3",
		Status:     entities.StatusSuccess,
		Duration:   90,
	})

	assert.Contains(t, msg, "<b>Réservation confirmée</b>")
	assert.Contains(t, msg, "Terrain : Foot 3")
	assert.Contains(t, msg, "Date : Lundi 17/03/2025")
	assert.Contains(t, msg, "Heure : 19h00")
	assert.NotContains(t, msg, "cible", "no fallback note when booked time matches")
	assert.Contains(t, msg, "Durée : 90 min")
}

func TestBuildMessageFallbackTime(t *testing.T) {
	msg := buildMessage(entities.NotificationEvent{
		TargetDate: "2025-03-17",
		TargetTime: "19:00",
		BookedTime: "20:00",
		Playground: "Foot 1",
		Status:     entities.StatusSuccess,
	})
	assert.Contains(t, msg, "Heure : 20h00 (cible : 19h00)")
}

func TestBuildMessageFailure(t *testing.T) {
	msg := buildMessage(entities.NotificationEvent{
		TargetDate:   "2025-03-17",
		TargetTime:   "19:00",
		Status:       entities.StatusFailed,
		ErrorMessage: "provider unreachable",
	})
	assert.Contains(t, msg, "<b>Réservation échouée</b>")
	assert.Contains(t, msg, "Heure cible : 19h00")
	assert.Contains(t, msg, "Erreur : provider unreachable")
}

func TestBuildMessageUnknownStatusFallsBackToRaw(t *testing.T) {
	msg := buildMessage(entities.NotificationEvent{Status: "weird"})
	assert.Contains(t, msg, "<b>weird</b>")
}
