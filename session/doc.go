// Package session holds the conversation state of a code review chat and the
// guardrail that asks the model to double-check weak answers.
//
// Model:
//   - A Session owns one append-only history and one GenerationConfig
//     snapshot, fixed for the session's lifetime.
//   - History always starts with the seed pair: the personality instruction
//     (user) and the greeting (model).
//   - Messages are appended in user/model pairs, and only after the model
//     replied. A failed invocation appends nothing.
//
// Flow of one Ask:
//
//	user(question) -> model(answer) [-> user(clarification) -> model(answer)]
//
// The bracketed retry runs at most once, when the first answer scores below
// the threshold.
package session
