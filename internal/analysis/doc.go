// Package analysis defines the boundary between the grading core and the
// external model that listens to a recitation and compares it with the
// canonical text. The Gemini adapter in internal/platform/gemini implements
// Analyzer; tests substitute fakes.
package analysis
