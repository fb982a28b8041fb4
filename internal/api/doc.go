// Package api exposes the materials pipeline over HTTP: registering videos,
// requesting first-pass generation and triggering a retry pass. Handlers
// translate store and pipeline errors into status codes and never echo raw
// error text to the client.
package api
