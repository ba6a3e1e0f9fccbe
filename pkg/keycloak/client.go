// Package keycloak validates bearer tokens against a Keycloak realm's JWKS
// endpoint, caching the RSA public key in memory. Adapted from the
// teacher's pkg/keycloak/client.go with its ad hoc log.Printf calls
// replaced by structured zap logging to match the rest of the module.
package keycloak

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"github.com/arnavsood/statuspulse/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

type Client struct {
	config    config.KeycloakConfig
	publicKey *rsa.PublicKey
	logger    *zap.Logger
}

func NewClient(cfg config.KeycloakConfig, logger *zap.Logger) *Client {
	return &Client{config: cfg, logger: logger}
}

func (c *Client) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	if c.publicKey == nil {
		if err := c.fetchPublicKey(); err != nil {
			return nil, fmt.Errorf("failed to fetch public key: %w", err)
		}
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return c.publicKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims format")
	}

	if exp, ok := claims["exp"].(float64); ok {
		if time.Now().Unix() > int64(exp) {
			return nil, fmt.Errorf("token expired")
		}
	}

	return claims, nil
}

func (c *Client) fetchPublicKey() error {
	url := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/certs", c.config.URL, c.config.Realm)

	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("failed to fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var jwks struct {
		Keys []struct {
			Kid string `json:"kid"`
			Kty string `json:"kty"`
			Use string `json:"use"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return fmt.Errorf("failed to decode jwks: %w", err)
	}
	if len(jwks.Keys) == 0 {
		return fmt.Errorf("no keys found in jwks")
	}

	for _, key := range jwks.Keys {
		if key.Kty != "RSA" || key.Use != "sig" {
			continue
		}
		publicKey, err := c.parseJWK(key.N, key.E)
		if err != nil {
			c.logger.Warn("keycloak: failed to parse jwk", zap.String("kid", key.Kid), zap.Error(err))
			continue
		}
		c.publicKey = publicKey
		return nil
	}

	return fmt.Errorf("no suitable RSA signing key found")
}

func (c *Client) parseJWK(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, fmt.Errorf("failed to decode n: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, fmt.Errorf("failed to decode e: %w", err)
	}

	nBig := new(big.Int).SetBytes(nBytes)
	eBig := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{N: nBig, E: int(eBig.Int64())}, nil
}
