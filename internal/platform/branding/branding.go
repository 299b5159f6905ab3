// Package branding holds product naming shared by every front end.
package branding

// AppName is the product name shown in pages, prompts and MCP metadata.
const AppName = "dicebox"

// Tagline describes the product in one line.
const Tagline = "Dice notation for tables, bots and scripts"
