// Package auth builds the transport security of the handler service.
package auth

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

var ErrInvalidCA = errors.New("invalid CA certificate")

// TLSConfig describes the server side TLS of the service. TLS is off when
// neither CertPath nor KeyPath is set.
type TLSConfig struct {
	CertPath      string
	KeyPath       string
	ClientCAPath  string
	MinTLSVersion string
}

// Enabled reports whether a certificate or key is configured.
func (c *TLSConfig) Enabled() bool {
	return c != nil && (c.CertPath != "" || c.KeyPath != "")
}

// Validate checks that certificate and key come together and that the
// minimum TLS version is supported.
func (c *TLSConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.CertPath == "" || c.KeyPath == "" {
		return fmt.Errorf("both certificate and key paths are required for TLS")
	}
	switch c.MinTLSVersion {
	case "", "1.2", "1.3":
	default:
		return fmt.Errorf("unsupported minimum TLS version %q", c.MinTLSVersion)
	}
	return nil
}

// BuildServerConfig returns nil when TLS is disabled. Setting ClientCAPath
// requires and verifies client certificates.
func (c *TLSConfig) BuildServerConfig() (*tls.Config, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if !c.Enabled() {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(c.CertPath, c.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   c.tlsVersion(),
	}

	if c.ClientCAPath != "" {
		pool, err := loadCAPool(c.ClientCAPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client CA pool: %w", err)
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsConfig, nil
}

// ServerOption returns the grpc credentials option for the config.
func (c *TLSConfig) ServerOption() (grpc.ServerOption, error) {
	tlsConfig, err := c.BuildServerConfig()
	if err != nil {
		return nil, err
	}
	if tlsConfig == nil {
		return grpc.Creds(insecure.NewCredentials()), nil
	}
	return grpc.Creds(credentials.NewTLS(tlsConfig)), nil
}

func (c *TLSConfig) tlsVersion() uint16 {
	if c.MinTLSVersion == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

func loadCAPool(path string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, ErrInvalidCA
	}
	return pool, nil
}
