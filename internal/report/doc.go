// Package report renders change feeds and dashboard overviews.
//
// Three formats are provided:
//   - SimpleWriter: plain text for the terminal
//   - JSONWriter: structured output for scripts
//   - MarkdownWriter: shareable reports with a significance pie chart
//
// Writers implement the Writer interface and can be combined with
// MultiWriter.
package report
