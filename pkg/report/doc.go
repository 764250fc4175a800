// Package report summarizes collected rows and renders them: the CSV export,
// the console summary and preview, and an optional Markdown run report.
package report
