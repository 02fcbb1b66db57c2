// Package wire defines the CBOR frame format used between simulated radio
// instances and for captured protocol traces.
//
// Frames use integer-keyed CBOR maps for compactness:
//
//	{
//	  1: kind,          // uint8 frame kind
//	  2: origin,        // uint32 sender radio instance ID
//	  3: service,       // service name the frame concerns (optional)
//	  4: payload        // kind-specific CBOR bytes (optional)
//	}
//
// On the stream transport, frames are length-prefixed with a 4-byte
// big-endian length.
package wire
