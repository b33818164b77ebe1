// Package pipeline derives the wallet views (holdings, valuation, day-grouped activity)
// from already-fetched adapter payloads.
//
// Every function here is pure and synchronous: inputs are never mutated, results are new
// slices, and no function fails for well-formed input. Fallibility lives in the adapters;
// Result and Join gate a derivation until its inputs are ready.
package pipeline
