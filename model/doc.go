// Package model defines the provider-agnostic abstraction of the language
// model completion service the agent loops drive.
//
// Core goals:
//   - Unify streaming generation behind a single channel based interface
//   - Normalize action (tool) declarations and calls across vendors
//   - Normalize stop reasons so loops can decide whether the model intends
//     to continue after its action calls were answered
//   - Resolve abstract tiers to backend identifiers through an immutable
//     TierTable instead of process globals
//   - Facilitate deterministic replay in tests (ScriptedModel)
//
// Providers (Anthropic, OpenAI) implement Model in sub packages so higher
// layers remain decoupled from vendor SDKs.
package model
