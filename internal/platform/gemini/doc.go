// Package gemini implements analysis.Analyzer on top of Google's Gemini API.
//
// Each recitation is graded with a single multimodal GenerateContent call:
// the prompt (canonical text plus instructions) and, when present, the
// learner's audio go out together and the model answers with JSON. The
// prompt is a text/template embedded in the binary; a file path in
// config.LLMConfig.PromptTemplatePath overrides it.
//
// Failures are never turned into a score. Transport errors wrap
// analysis.ErrAnalysisFailed, unreadable answers wrap
// analysis.ErrInvalidResponse, and safety blocks wrap
// analysis.ErrContentBlocked.
package gemini
