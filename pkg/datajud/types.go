// Package datajud queries the CNJ DataJud public API across tribunals.
package datajud

import (
	"errors"
	"regexp"
	"time"
)

// DefaultTribunals is the precedence order used when none is configured
var DefaultTribunals = []string{"tjrj", "tjsp", "tjmg", "trf1", "trf2", "trf3", "trf4", "trf5"}

var (
	// ErrNotFound means no tribunal returned the process
	ErrNotFound = errors.New("process not found in any tribunal")
	// ErrInvalidProcessNumber means the number has no digits
	ErrInvalidProcessNumber = errors.New("process number has no digits")
)

var nonDigits = regexp.MustCompile(`\D`)

// Digits strips every non-digit from a process number
func Digits(processNumber string) string {
	return nonDigits.ReplaceAllString(processNumber, "")
}

// Named is a coded DataJud reference such as a class or subject
type Named struct {
	Code int    `json:"codigo"`
	Name string `json:"nome"`
}

// Complement is a tabled complement of a movement
type Complement struct {
	Code        int    `json:"codigo"`
	Value       int    `json:"valor"`
	Name        string `json:"nome"`
	Description string `json:"descricao"`
}

// Movement is a docket event as DataJud reports it
type Movement struct {
	Code        int          `json:"codigo"`
	Name        string       `json:"nome"`
	DateTime    string       `json:"dataHora"`
	Complements []Complement `json:"complementosTabelados"`
}

// CaseRecord is the _source of a DataJud hit
type CaseRecord struct {
	ProcessNumber string     `json:"numeroProcesso"`
	Tribunal      string     `json:"tribunal"`
	Grade         string     `json:"grau"`
	Class         *Named     `json:"classe"`
	Subjects      []Named    `json:"assuntos"`
	JudgingBody   *Named     `json:"orgaoJulgador"`
	FiledAt       string     `json:"dataAjuizamento"`
	UpdatedAt     string     `json:"dataHoraUltimaAtualizacao"`
	Movements     []Movement `json:"movimentos"`
}

// Outcome classifies one tribunal attempt
type Outcome string

const (
	OutcomeMatched        Outcome = "matched"
	OutcomeNotFound       Outcome = "not_found"
	OutcomeTransportError Outcome = "transport_error"
	// OutcomeSkipped marks tribunals never called because a higher-ranked one matched
	OutcomeSkipped Outcome = "skipped"
)

// Attempt is the result of querying one tribunal
type Attempt struct {
	Tribunal string
	Rank     int
	Outcome  Outcome
	Record   *CaseRecord
	Err      error
	Duration time.Duration
}

// SearchResult aggregates the attempts of one search
type SearchResult struct {
	ProcessNumber string
	Record        *CaseRecord
	Tribunal      string
	Attempts      []Attempt
}

// Found reports whether any tribunal matched
func (r *SearchResult) Found() bool {
	return r != nil && r.Record != nil
}

// Count returns how many attempts had the given outcome
func (r *SearchResult) Count(outcome Outcome) int {
	n := 0
	for _, a := range r.Attempts {
		if a.Outcome == outcome {
			n++
		}
	}
	return n
}
