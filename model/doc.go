// Package model defines the provider-agnostic abstractions for interacting
// with language models.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single interface
//   - Normalize tool declarations (ToolDefinition) and function calls
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate scripted mocking for tests (MockModel)
//
// Providers live in sub-packages (openai, anthropic, gemini) so higher layers
// stay decoupled from vendor SDKs.
package model
