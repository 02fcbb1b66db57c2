package pairing

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"io"
	"net"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// Key sizes.
const (
	// NikSize is the size of a Nan Identity Key in bytes.
	NikSize = 16

	// TagSize is the size of a NIRA identity-resolution tag in bytes.
	TagSize = 8

	// NpkSize is the size of a derived pairing key in bytes.
	NpkSize = 32
)

// nirLabel prefixes the identity-resolution HMAC.
var nirLabel = []byte{'N', 'I', 'R'}

// SecurityAssociation is the cached NPKSA from a completed pairing
// confirmation.
type SecurityAssociation struct {
	// PeerNik is the peer's identity key, used to match later
	// verification announcements.
	PeerNik []byte

	// LocalNik is the local identity key used in the exchange.
	LocalNik []byte

	// Npk is the negotiated pairing key.
	Npk []byte

	// Akm is the authentication and key management suite used.
	Akm int

	// CipherSuite is the negotiated cipher suite.
	CipherSuite uint32
}

// Manager stores NIKs per calling package and security associations per
// paired-device alias. It is safe for concurrent use.
type Manager struct {
	mu sync.Mutex

	packageNik      map[string][]byte
	perPackageAlias map[string]map[string]struct{}
	aliasNik        map[string][]byte
	aliasSecurity   map[string]*SecurityAssociation
}

// NewManager creates an empty pairing manager.
func NewManager() *Manager {
	return &Manager{
		packageNik:      make(map[string][]byte),
		perPackageAlias: make(map[string]map[string]struct{}),
		aliasNik:        make(map[string][]byte),
		aliasSecurity:   make(map[string]*SecurityAssociation),
	}
}

func createRandomNik() []byte {
	nik := make([]byte, NikSize)
	if _, err := rand.Read(nik); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return nik
}

// NikForCallingPackage returns the identity key for the calling package,
// creating one on first use.
func (m *Manager) NikForCallingPackage(packageName string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	if nik, ok := m.packageNik[packageName]; ok {
		return nik
	}
	nik := createRandomNik()
	m.packageNik[packageName] = nik
	return nik
}

// PairedDeviceAlias resolves a verification announcement (nonce, tag, MAC)
// to a previously stored alias for the calling package. Returns "" when no
// paired device matches.
func (m *Manager) PairedDeviceAlias(packageName string, nonce, tag []byte, mac net.HardwareAddr) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	aliases, ok := m.perPackageAlias[packageName]
	if !ok {
		return ""
	}
	for alias := range aliases {
		if m.matchAliasLocked(alias, nonce, tag, mac) {
			return alias
		}
	}
	return ""
}

func (m *Manager) matchAliasLocked(alias string, nonce, tag []byte, mac net.HardwareAddr) bool {
	nik, ok := m.aliasNik[alias]
	if !ok {
		return false
	}
	h := hmac.New(sha256.New, nik)
	h.Write(nirLabel)
	h.Write(mac)
	h.Write(nonce)
	expected := h.Sum(nil)[:TagSize]
	return bytes.Equal(tag, expected)
}

// ResolutionTag computes the NIRA tag a peer would derive from our NIK for
// the given nonce and MAC.
func ResolutionTag(nik, nonce []byte, mac net.HardwareAddr) []byte {
	h := hmac.New(sha256.New, nik)
	h.Write(nirLabel)
	h.Write(mac)
	h.Write(nonce)
	return h.Sum(nil)[:TagSize]
}

// DeriveNpk derives the pairing key from the bootstrapping secret bound to
// both identity keys, using HKDF-SHA256.
func DeriveNpk(secret, localNik, peerNik []byte) ([]byte, error) {
	salt := make([]byte, 0, len(localNik)+len(peerNik))
	salt = append(salt, localNik...)
	salt = append(salt, peerNik...)

	npk := make([]byte, NpkSize)
	r := hkdf.New(sha256.New, secret, salt, []byte("NAN Pairing NPK"))
	if _, err := io.ReadFull(r, npk); err != nil {
		return nil, err
	}
	return npk, nil
}

// SecurityInfoForAlias returns the cached association for the alias, or nil.
func (m *Manager) SecurityInfoForAlias(alias string) *SecurityAssociation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aliasSecurity[alias]
}

// AddPairedDevice caches a completed pairing under the given alias.
func (m *Manager) AddPairedDevice(packageName, alias string, info *SecurityAssociation) {
	if info == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	aliases, ok := m.perPackageAlias[packageName]
	if !ok {
		aliases = make(map[string]struct{})
		m.perPackageAlias[packageName] = aliases
	}
	aliases[alias] = struct{}{}
	m.aliasNik[alias] = info.PeerNik
	m.aliasSecurity[alias] = info
}

// RemovePackage drops every cache entry related to the calling package.
func (m *Manager) RemovePackage(packageName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.packageNik, packageName)
	aliases, ok := m.perPackageAlias[packageName]
	if !ok {
		return
	}
	delete(m.perPackageAlias, packageName)
	for alias := range aliases {
		delete(m.aliasNik, alias)
		delete(m.aliasSecurity, alias)
	}
}

// RemovePairedDevice drops the cache entries for one alias.
func (m *Manager) RemovePairedDevice(packageName, alias string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.aliasNik, alias)
	delete(m.aliasSecurity, alias)
	if aliases, ok := m.perPackageAlias[packageName]; ok {
		delete(aliases, alias)
	}
}

// AllPairedDevices returns every alias stored for the calling package.
func (m *Manager) AllPairedDevices(packageName string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	aliases := m.perPackageAlias[packageName]
	out := make([]string, 0, len(aliases))
	for alias := range aliases {
		out = append(out, alias)
	}
	return out
}
