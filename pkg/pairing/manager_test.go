package pairing

import (
	"bytes"
	"net"
	"testing"
)

var testMac = net.HardwareAddr{0x02, 0x11, 0x22, 0x33, 0x44, 0x55}

func TestNikForCallingPackageStable(t *testing.T) {
	m := NewManager()

	nik := m.NikForCallingPackage("com.example.app")
	if len(nik) != NikSize {
		t.Fatalf("NIK length = %d, want %d", len(nik), NikSize)
	}
	again := m.NikForCallingPackage("com.example.app")
	if !bytes.Equal(nik, again) {
		t.Fatalf("NIK changed between calls for the same package")
	}
	other := m.NikForCallingPackage("com.example.other")
	if bytes.Equal(nik, other) {
		t.Fatalf("distinct packages share a NIK")
	}
}

func TestResolutionTagDeterministic(t *testing.T) {
	nik := bytes.Repeat([]byte{0x5a}, NikSize)
	nonce := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	tag := ResolutionTag(nik, nonce, testMac)
	if len(tag) != TagSize {
		t.Fatalf("tag length = %d, want %d", len(tag), TagSize)
	}
	if !bytes.Equal(tag, ResolutionTag(nik, nonce, testMac)) {
		t.Fatalf("tag not deterministic")
	}
	otherNonce := []byte{8, 7, 6, 5, 4, 3, 2, 1}
	if bytes.Equal(tag, ResolutionTag(nik, otherNonce, testMac)) {
		t.Fatalf("tag ignores nonce")
	}
}

func TestPairedDeviceAliasResolution(t *testing.T) {
	m := NewManager()
	peerNik := bytes.Repeat([]byte{0x33}, NikSize)
	m.AddPairedDevice("com.example.app", "living-room-tv", &SecurityAssociation{
		PeerNik: peerNik,
		Npk:     bytes.Repeat([]byte{0x44}, NpkSize),
	})

	nonce := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	tag := ResolutionTag(peerNik, nonce, testMac)

	if alias := m.PairedDeviceAlias("com.example.app", nonce, tag, testMac); alias != "living-room-tv" {
		t.Fatalf("alias = %q, want living-room-tv", alias)
	}

	// A wrong tag, a wrong package and an unknown package all miss.
	badTag := append([]byte(nil), tag...)
	badTag[0] ^= 0xff
	if alias := m.PairedDeviceAlias("com.example.app", nonce, badTag, testMac); alias != "" {
		t.Fatalf("bad tag resolved to %q", alias)
	}
	if alias := m.PairedDeviceAlias("com.example.other", nonce, tag, testMac); alias != "" {
		t.Fatalf("foreign package resolved to %q", alias)
	}
}

func TestSecurityInfoForAlias(t *testing.T) {
	m := NewManager()
	if m.SecurityInfoForAlias("nope") != nil {
		t.Fatalf("unknown alias returned an association")
	}

	sa := &SecurityAssociation{
		PeerNik: bytes.Repeat([]byte{0x01}, NikSize),
		Npk:     bytes.Repeat([]byte{0x02}, NpkSize),
	}
	m.AddPairedDevice("pkg", "tv", sa)
	got := m.SecurityInfoForAlias("tv")
	if got == nil || !bytes.Equal(got.Npk, sa.Npk) {
		t.Fatalf("cached association mismatch")
	}
}

func TestRemovePairedDevice(t *testing.T) {
	m := NewManager()
	peerNik := bytes.Repeat([]byte{0x22}, NikSize)
	m.AddPairedDevice("pkg", "tv", &SecurityAssociation{PeerNik: peerNik})
	m.AddPairedDevice("pkg", "speaker", &SecurityAssociation{PeerNik: peerNik})

	m.RemovePairedDevice("pkg", "tv")
	aliases := m.AllPairedDevices("pkg")
	if len(aliases) != 1 || aliases[0] != "speaker" {
		t.Fatalf("aliases after removal = %v", aliases)
	}
	if m.SecurityInfoForAlias("tv") != nil {
		t.Fatalf("removed alias still has an association")
	}
}

func TestRemovePackage(t *testing.T) {
	m := NewManager()
	m.NikForCallingPackage("pkg")
	m.AddPairedDevice("pkg", "tv", &SecurityAssociation{
		PeerNik: bytes.Repeat([]byte{0x11}, NikSize),
	})

	m.RemovePackage("pkg")
	if len(m.AllPairedDevices("pkg")) != 0 {
		t.Fatalf("aliases survived package removal")
	}
	if m.SecurityInfoForAlias("tv") != nil {
		t.Fatalf("association survived package removal")
	}
}

func TestDeriveNpk(t *testing.T) {
	localNik := bytes.Repeat([]byte{0xaa}, NikSize)
	peerNik := bytes.Repeat([]byte{0xbb}, NikSize)
	secret := []byte("opportunistic-secret")

	npk, err := DeriveNpk(secret, localNik, peerNik)
	if err != nil {
		t.Fatalf("DeriveNpk: %v", err)
	}
	if len(npk) != NpkSize {
		t.Fatalf("NPK length = %d, want %d", len(npk), NpkSize)
	}

	again, err := DeriveNpk(secret, localNik, peerNik)
	if err != nil {
		t.Fatalf("DeriveNpk: %v", err)
	}
	if !bytes.Equal(npk, again) {
		t.Fatalf("NPK not deterministic")
	}

	swapped, err := DeriveNpk(secret, peerNik, localNik)
	if err != nil {
		t.Fatalf("DeriveNpk: %v", err)
	}
	if bytes.Equal(npk, swapped) {
		t.Fatalf("NPK ignores NIK order")
	}
}
