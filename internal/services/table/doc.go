// Package table hosts shared roll rooms: players join a room over a
// websocket, chat, and type `/roll <expr>` to roll where everyone sees it.
// The same process serves a plain HTML roller page.
package table
