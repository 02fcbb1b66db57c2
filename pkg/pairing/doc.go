// Package pairing stores and maintains the per-caller Nan Identity Keys
// (NIK) and the NPK/NIK security associations cached for paired peers.
//
// Each calling package gets a random 16-byte NIK on first use. When a
// pairing exchange completes, the application names the peer with an alias;
// the alias maps to the peer's NIK and the negotiated key material so a
// later verification match (nonce + tag over the peer's announcement) can be
// resolved back to the alias without exposing key material to the
// application.
package pairing
