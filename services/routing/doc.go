// Package routing maps caller-facing task names to upstream model identifiers.
//
// This package provides:
//   - Loading and shape validation of the routing table (routing.yaml)
//   - Task-to-model lookup
//   - Ordered fallback resolution against a live list of available models
//
// A routing table has two required sections:
//
//	tasks:
//	  research_deep: perplexity/sonar-deep-research
//	  ux_copy: anthropic/claude-3.7-sonnet
//	fallbacks:
//	  - openai/gpt-4o-mini
//	  - meta-llama/llama-3.1-70b-instruct
//
// Fallbacks are a priority list: the first one present in the available set wins.
// Model identifiers are compared case-insensitively but returned exactly as configured.
// A TaskRouter is immutable once built and may be shared between goroutines.
package routing
