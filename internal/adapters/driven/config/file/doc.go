// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data under the folio config directory (~/.folio).
//
// Adapters:
//   - ConfigStore: TOML configuration with .env and environment fallbacks
//   - PromptStore: user-editable answer prompts with embedded defaults
package file
