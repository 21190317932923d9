package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifySignature(t *testing.T) {
	secret := "shared-secret"
	body := []byte(`{"status":"SUCCESS","order_reference":"FRD-ABC123"}`)

	sig := Sign(secret, body)
	assert.True(t, VerifySignature(secret, body, sig))

	t.Run("rejects tampered body", func(t *testing.T) {
		assert.False(t, VerifySignature(secret, []byte(`{"status":"FAILED"}`), sig))
	})
	t.Run("rejects wrong secret", func(t *testing.T) {
		assert.False(t, VerifySignature("other-secret", body, sig))
	})
	t.Run("rejects empty signature", func(t *testing.T) {
		assert.False(t, VerifySignature(secret, body, ""))
	})
}
