// Package halsim provides a simulated radio firmware for tests and demos.
//
// An Air is a shared medium; every Radio attached to it implements hal.Api
// and completes commands asynchronously through the registered
// hal.EventHandler, the way a real firmware binding would. Publish and
// subscribe sessions on different radios match by service name, follow-on
// messages are delivered peer to peer, and simplified data-path, pairing
// and bootstrapping flows produce the corresponding confirm notifications.
// Radios support injected failures and response delays.
//
// A Link bridges the Air to other processes over UDP, discovering peers via
// mDNS and exchanging wire frames.
package halsim
