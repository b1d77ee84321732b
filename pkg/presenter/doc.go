// Package presenter renders thread reconstruction results as terminal
// text, JSON or YAML, and provides the Console used by the CLI for status
// messages.
package presenter
