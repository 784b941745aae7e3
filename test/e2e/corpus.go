// Package e2e drives a full server over HTTP: a corpus of text documents is
// ingested, then questions are answered through the API client.
package e2e

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Document is one file of the e2e corpus.
type Document struct {
	Name    string
	Content string
	// Phrase appears in this document only and is what questions ask about.
	Phrase string
}

// QuestionCase is a question and the phrase one of its retrieved passages must contain.
type QuestionCase struct {
	Question string
	Phrase   string
}

// Corpus holds the documents and question cases.
type Corpus struct {
	Documents []Document
	Cases     []QuestionCase
}

var topics = []struct {
	phrase  string
	content string
}{
	{"parental leave", "Parental leave lasts sixteen weeks at full pay. Parental leave may start up to two weeks before the expected birth."},
	{"remote work stipend", "Each employee gets a remote work stipend of five hundred dollars. The remote work stipend covers desks chairs and monitors."},
	{"expense reimbursement", "Expense reimbursement requires receipts. Expense reimbursement claims are paid with the next monthly salary."},
	{"laptop refresh", "Laptops are replaced every three years. The laptop refresh schedule is managed by IT support."},
	{"badge access", "Badge access to the building is logged. Lost badge access cards must be reported within one day."},
	{"sick days", "Employees receive ten sick days annually. Sick days do not require a doctor note for the first two days."},
	{"performance review", "A performance review happens twice a year. Each performance review includes peer feedback and goals."},
	{"relocation package", "The relocation package pays for movers and temporary housing. A relocation package is offered for international transfers."},
	{"pension contribution", "The company matches pension contribution up to six percent. Pension contribution vesting completes after two years."},
	{"gym membership", "A gym membership subsidy of forty dollars is paid monthly. Gym membership receipts are submitted quarterly."},
	{"conference budget", "Engineers have a conference budget of two thousand dollars. Conference budget requests need manager approval."},
	{"onboarding buddy", "New hires are paired with an onboarding buddy. The onboarding buddy meets them daily during the first week."},
	{"data retention", "Customer records follow a data retention period of seven years. Data retention rules are reviewed by legal."},
	{"incident escalation", "Incident escalation goes to the on call lead first. Incident escalation to executives happens after one hour."},
	{"bicycle parking", "Bicycle parking is available in the basement. Bicycle parking spots are first come first served."},
	{"holiday calendar", "The holiday calendar lists eleven public holidays. The holiday calendar differs by country office."},
}

// BuildCorpus returns one document per topic and one question per document.
func BuildCorpus() *Corpus {
	c := &Corpus{}
	for i, t := range topics {
		ext := ".txt"
		if i%2 == 1 {
			ext = ".md"
		}
		c.Documents = append(c.Documents, Document{
			Name:    fmt.Sprintf("%02d-%s%s", i+1, strings.ReplaceAll(t.phrase, " ", "-"), ext),
			Content: t.content,
			Phrase:  t.phrase,
		})
		c.Cases = append(c.Cases, QuestionCase{
			Question: fmt.Sprintf("Tell me about %s", t.phrase),
			Phrase:   t.phrase,
		})
	}
	return c
}

// WriteTo writes every document into dir.
func (c *Corpus) WriteTo(dir string) error {
	for _, d := range c.Documents {
		if err := os.WriteFile(filepath.Join(dir, d.Name), []byte(d.Content), 0600); err != nil {
			return err
		}
	}
	return nil
}
