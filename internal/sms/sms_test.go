package sms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderNewRequestMessage(t *testing.T) {
	msg := ProviderNewRequestMessage("Ana", "Luis", "Matemáticas")
	assert.Contains(t, msg, "Ana")
	assert.Contains(t, msg, "Luis")
	assert.Contains(t, msg, "Matemáticas")

	msg = ProviderNewRequestMessage("", "", "Física")
	assert.Contains(t, msg, "Tutor")
	assert.Contains(t, msg, "Un estudiante")
}

func TestClientMessagesFallBackToGenericNames(t *testing.T) {
	msg := ClientConfirmationMessage("", "", "Inglés")
	assert.Contains(t, msg, "Estudiante")
	assert.Contains(t, msg, "El tutor")

	msg = ClientRejectionMessage("", "Química")
	assert.Contains(t, msg, "Estudiante")
	assert.Contains(t, msg, "Química")
}
