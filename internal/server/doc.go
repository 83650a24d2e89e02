// Package server is the WebSocket transport for the relay.
//
// It owns everything the broadcast core treats as external: environment
// configuration, the HTTP listener and routes, origin checks, and the Client
// type that adapts a gorilla/websocket connection to relay.Conn. Connections
// are accepted on any path without sub-protocol negotiation.
package server
