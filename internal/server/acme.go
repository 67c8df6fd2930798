package server

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-acme/lego/v4/certcrypto"
	"github.com/go-acme/lego/v4/certificate"
	"github.com/go-acme/lego/v4/challenge/http01"
	"github.com/go-acme/lego/v4/lego"
	"github.com/go-acme/lego/v4/registration"

	"github.com/anved/listkeeper/internal/config"
)

const (
	acmeStagingURL    = "https://acme-staging-v02.api.letsencrypt.org/directory"
	acmeProductionURL = "https://acme-v02.api.letsencrypt.org/directory"
)

// acmeAccount is the registered ACME account, satisfying lego's User
// interface. The key is kept out of the JSON state file and persisted
// separately as PEM.
type acmeAccount struct {
	Email        string                 `json:"email"`
	Registration *registration.Resource `json:"registration"`
	key          crypto.PrivateKey
}

func (a *acmeAccount) GetEmail() string                        { return a.Email }
func (a *acmeAccount) GetRegistration() *registration.Resource { return a.Registration }
func (a *acmeAccount) GetPrivateKey() crypto.PrivateKey        { return a.key }

// ACMEManager obtains and serves a certificate for tls.mode=acme. State
// (account, key, certificate) lives under the configured storage dir so
// restarts reuse the issued certificate instead of re-ordering one.
type ACMEManager struct {
	cfg           *config.ACMEConfig
	logger        *slog.Logger
	challengePort int

	mu      sync.RWMutex
	cert    *tls.Certificate
	client  *lego.Client
	account *acmeAccount
}

// NewACMEManager creates a certificate manager for the configured domain.
// The challenge port is where the HTTP-01 responder listens.
func NewACMEManager(cfg *config.ACMEConfig, challengePort int, logger *slog.Logger) *ACMEManager {
	return &ACMEManager{
		cfg:           cfg,
		logger:        logger,
		challengePort: challengePort,
	}
}

// Init registers the account if needed and ensures a certificate is on
// hand, ordering a fresh one when none is stored.
func (m *ACMEManager) Init(ctx context.Context) error {
	if m.cfg.Domain == "" {
		return errors.New("ACME domain is required")
	}
	if m.cfg.Email == "" {
		return errors.New("ACME email is required")
	}
	if err := os.MkdirAll(m.cfg.StorageDir, 0700); err != nil {
		return fmt.Errorf("failed to create ACME storage dir: %w", err)
	}

	account, err := m.loadAccount()
	if err != nil {
		return err
	}
	m.account = account

	legoCfg := lego.NewConfig(account)
	legoCfg.CADirURL = m.directoryURL()
	legoCfg.Certificate.KeyType = certcrypto.EC256

	client, err := lego.NewClient(legoCfg)
	if err != nil {
		return fmt.Errorf("failed to create ACME client: %w", err)
	}
	m.client = client

	responder := http01.NewProviderServer("", fmt.Sprintf("%d", m.challengePort))
	if err := client.Challenge.SetHTTP01Provider(responder); err != nil {
		return fmt.Errorf("failed to set HTTP-01 provider: %w", err)
	}

	if account.Registration == nil {
		reg, err := client.Registration.Register(registration.RegisterOptions{
			TermsOfServiceAgreed: true,
		})
		if err != nil {
			return fmt.Errorf("failed to register ACME account: %w", err)
		}
		account.Registration = reg
		if err := m.saveAccount(account); err != nil {
			m.logger.Warn("failed to save ACME account", "error", err)
		}
	}

	certFile, keyFile := m.certPaths()
	if cert, err := tls.LoadX509KeyPair(certFile, keyFile); err == nil {
		m.cert = &cert
		m.logger.Info("loaded stored ACME certificate", "domain", m.cfg.Domain)
		return nil
	}

	m.logger.Info("ordering ACME certificate", "domain", m.cfg.Domain)
	return m.obtainCertificate()
}

// GetTLSConfig returns a TLS config serving this manager's certificate.
func (m *ACMEManager) GetTLSConfig() *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		GetCertificate: func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
			m.mu.RLock()
			defer m.mu.RUnlock()
			if m.cert == nil {
				return nil, errors.New("no certificate available")
			}
			return m.cert, nil
		},
	}
}

func (m *ACMEManager) directoryURL() string {
	if m.cfg.Directory != "" {
		return m.cfg.Directory
	}
	if m.cfg.UseStaging {
		return acmeStagingURL
	}
	return acmeProductionURL
}

func (m *ACMEManager) accountPaths() (stateFile, keyFile string) {
	return filepath.Join(m.cfg.StorageDir, "account.json"),
		filepath.Join(m.cfg.StorageDir, "account.key")
}

func (m *ACMEManager) certPaths() (certFile, keyFile string) {
	return filepath.Join(m.cfg.StorageDir, "cert.pem"),
		filepath.Join(m.cfg.StorageDir, "key.pem")
}

// loadAccount restores a persisted account, or creates a fresh unregistered
// one with a new key when no usable state is stored.
func (m *ACMEManager) loadAccount() (*acmeAccount, error) {
	stateFile, keyFile := m.accountPaths()

	state, err := os.ReadFile(stateFile)
	if err == nil {
		if keyPEM, err := os.ReadFile(keyFile); err == nil {
			account := &acmeAccount{}
			if json.Unmarshal(state, account) == nil {
				if key, err := certcrypto.ParsePEMPrivateKey(keyPEM); err == nil {
					account.key = key
					return account, nil
				}
			}
		}
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate account key: %w", err)
	}
	return &acmeAccount{Email: m.cfg.Email, key: key}, nil
}

func (m *ACMEManager) saveAccount(account *acmeAccount) error {
	stateFile, keyFile := m.accountPaths()

	state, err := json.MarshalIndent(account, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(stateFile, state, 0600); err != nil {
		return err
	}
	return os.WriteFile(keyFile, certcrypto.PEMEncode(account.key), 0600)
}

func (m *ACMEManager) obtainCertificate() error {
	res, err := m.client.Certificate.Obtain(certificate.ObtainRequest{
		Domains: []string{m.cfg.Domain},
		Bundle:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to obtain certificate: %w", err)
	}

	certFile, keyFile := m.certPaths()
	if err := os.WriteFile(certFile, res.Certificate, 0644); err != nil {
		return fmt.Errorf("failed to save certificate: %w", err)
	}
	if err := os.WriteFile(keyFile, res.PrivateKey, 0600); err != nil {
		return fmt.Errorf("failed to save key: %w", err)
	}

	cert, err := tls.X509KeyPair(res.Certificate, res.PrivateKey)
	if err != nil {
		return fmt.Errorf("failed to parse certificate: %w", err)
	}

	m.mu.Lock()
	m.cert = &cert
	m.mu.Unlock()

	m.logger.Info("obtained ACME certificate", "domain", m.cfg.Domain, "cert_file", certFile)
	return nil
}
