package jwtinfra

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edge-landings/api/internal/config"
)

func writeKeys(t *testing.T) *config.Config {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	return &config.Config{JWTPrivateKeyPath: privPath, JWTPublicKeyPath: pubPath, JWTExpiry: time.Hour}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	p, err := NewProvider(writeKeys(t))
	require.NoError(t, err)

	tok, err := p.Sign("01HX", "a@b.com", "cus_1")
	require.NoError(t, err)

	claims, err := p.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "01HX", claims.UserID)
	assert.Equal(t, "a@b.com", claims.Email)
	assert.Equal(t, "cus_1", claims.CustomerID)
}

func TestVerify_RejectsExpired(t *testing.T) {
	cfg := writeKeys(t)
	cfg.JWTExpiry = -time.Minute
	p, err := NewProvider(cfg)
	require.NoError(t, err)

	tok, err := p.Sign("01HX", "a@b.com", "")
	require.NoError(t, err)
	_, err = p.Verify(tok)
	assert.Error(t, err)
}

func TestNewProvider_MissingKeys(t *testing.T) {
	_, err := NewProvider(&config.Config{JWTPrivateKeyPath: "/nonexistent/private.pem"})
	assert.ErrorContains(t, err, "read private key")
}
