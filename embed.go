// Package aichatbot embeds the web assets served by the chat UI.
package aichatbot

import "embed"

// TemplateFS contains the HTML templates, organized into layouts, pages,
// and partial views.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS contains the JavaScript and CSS assets of the web interface.
//
//go:embed static/*
var StaticFS embed.FS
