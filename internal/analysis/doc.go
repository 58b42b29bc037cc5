// Package analysis calls the structured-output language model that turns a
// transcript into an AnalysisResult: summary, takeaways, modalities, and
// the diachronic and synchronic structure of the interview.
package analysis
