// Package gemini provides an implementation of the generation.Generator interface
// that uses Google's Gemini API for generating learning materials from video
// transcripts.
//
// This package is an infrastructure adapter in the hexagonal architecture,
// connecting the application's domain logic to Google's external Gemini AI service.
// It translates between the application's domain models and the Gemini API
// without exposing the details of the external service to the core application.
//
// Key components:
//
// 1. Generator:
//   - Implements the generation.Generator interface
//   - Issues exactly one GenerateContent call per Generate
//   - Reports token usage from the response metadata
//
// 2. Prompt Management:
//   - Loads one text/template per artifact kind plus a bundle wrapper
//   - Templates are embedded and may be overridden from a directory
//
// 3. Response Processing:
//   - Decodes a JSON object keyed by artifact kind
//   - Validates each artifact against an embedded JSON schema
//
// 4. Error Handling:
//   - Maps safety, recitation and max-token finish reasons to generation errors
//   - Rejects prompts that exceed the configured input token budget
//   - Returns provider errors with their text intact so they can be classified
//
// Retrying is the caller's concern. This package never retries.
package gemini
